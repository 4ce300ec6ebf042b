package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVerifier(t *testing.T) {
	_, err := NewVerifier("")
	assert.ErrorIs(t, err, ErrEmptySecret)

	v, err := NewVerifier("my-secret")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestIssueAndVerify(t *testing.T) {
	type testCase struct {
		name          string
		correctSecret string
		secretToCheck string
		expiresIn     time.Duration
		hasError      bool
	}
	testCases := []testCase{
		{
			name:          "valid",
			correctSecret: "my-secret",
			secretToCheck: "my-secret",
			expiresIn:     time.Hour,
			hasError:      false,
		},
		{
			name:          "expired",
			correctSecret: "my-secret",
			secretToCheck: "my-secret",
			expiresIn:     -time.Hour,
			hasError:      true,
		},
		{
			name:          "invalid_secret",
			correctSecret: "my-secret",
			secretToCheck: "wrong-secret",
			expiresIn:     time.Hour,
			hasError:      true,
		},
	}
	userID := "6650f1a2c3d4e5f601234567"
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			issuer, _ := NewVerifier(tc.correctSecret)
			token, err := issuer.Issue(userID, tc.expiresIn)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			checker, _ := NewVerifier(tc.secretToCheck)
			parsedID, err := checker.Verify(token)
			assert.Equal(t, tc.hasError, err != nil)
			if tc.hasError {
				assert.ErrorIs(t, err, ErrInvalidToken)
			} else {
				assert.Equal(t, userID, parsedID)
			}
		})
	}
}

func TestVerify_RejectsMalformedAndForeignTokens(t *testing.T) {
	v, _ := NewVerifier("my-secret")

	_, err := v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{})
	signed, err := noUser.SignedString([]byte("my-secret"))
	require.NoError(t, err)
	_, err = v.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherAlg := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: "u1"})
	signed, err = otherAlg.SignedString([]byte("my-secret"))
	require.NoError(t, err)
	_, err = v.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGetBearerToken(t *testing.T) {
	token := "some_token"
	type testCase struct {
		name          string
		headerKey     string
		headerValue   string
		expectedError error
	}
	testCases := []testCase{
		{
			name:          "success",
			headerKey:     "Authorization",
			headerValue:   "Bearer " + token,
			expectedError: nil,
		},
		{
			name:          "wrong_scheme",
			headerKey:     "Authorization",
			headerValue:   "Basic " + token,
			expectedError: ErrInvalidTokenFormat,
		},
		{
			name:          "empty_token",
			headerKey:     "Authorization",
			headerValue:   "Bearer ",
			expectedError: ErrInvalidTokenFormat,
		},
		{
			name:          "no_header",
			headerKey:     "X-Other",
			headerValue:   "value",
			expectedError: ErrNoAuthHeader,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			headers := http.Header{}
			headers.Add(tc.headerKey, tc.headerValue)
			got, err := GetBearerToken(headers)
			assert.Equal(t, tc.expectedError, err)
			if tc.expectedError == nil {
				assert.Equal(t, token, got)
			}
		})
	}
}
