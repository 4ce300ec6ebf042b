package services_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vieux-grimoire-api/internal/daemon"
	"vieux-grimoire-api/internal/db"
	"vieux-grimoire-api/internal/db/mocks"
	"vieux-grimoire-api/internal/images"
	"vieux-grimoire-api/internal/models"
	"vieux-grimoire-api/internal/services"
)

const baseURL = "http://localhost:4000"

type fixture struct {
	svc       *services.BookService
	store     *db.MemoryBookStore
	imagesDir string
	tempDir   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	janitor := daemon.NewJanitor(time.Minute)
	imagesDir := filepath.Join(t.TempDir(), "images")
	processor, err := images.NewProcessor(imagesDir, 2000, 80, janitor)
	require.NoError(t, err)

	store := db.NewMemoryBookStore()
	return fixture{
		svc:       services.NewBookService(store, processor, nil, janitor),
		store:     store,
		imagesDir: imagesDir,
		tempDir:   t.TempDir(),
	}
}

func (f fixture) upload(t *testing.T, name string) *images.Upload {
	t.Helper()
	file, err := os.CreateTemp(f.tempDir, "upload-*")
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, image.NewRGBA(image.Rect(0, 0, 64, 48))))
	return &images.Upload{TempPath: file.Name(), OriginalName: name}
}

func (f fixture) corruptUpload(t *testing.T) *images.Upload {
	t.Helper()
	path := filepath.Join(f.tempDir, "corrupt.bin")
	require.NoError(t, os.WriteFile(path, []byte("\x00\x01garbage"), 0o644))
	return &images.Upload{TempPath: path, OriginalName: "corrupt.png"}
}

func (f fixture) imageFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.imagesDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func bookJSON(title string) []byte {
	return []byte(fmt.Sprintf(`{"title":%q,"author":"Albert Camus","year":"1942","genre":"Roman"}`, title))
}

func TestBookService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("strips client identity and processes image", func(t *testing.T) {
		f := newFixture(t)
		payload := []byte(`{"_id":"6650f1a2c3d4e5f601234567","userId":"mallory","title":"L'Étranger",
			"author":"Albert Camus","year":1942,"genre":"Roman","averageRating":5,
			"ratings":[{"userId":"mallory","grade":5},{"userId":"alice","grade":4}]}`)

		book, err := f.svc.Create(ctx, "alice", payload, f.upload(t, "etranger.png"), baseURL)
		require.NoError(t, err)

		assert.Equal(t, "alice", book.UserID)
		assert.NotEqual(t, "6650f1a2c3d4e5f601234567", book.ID.Hex())
		assert.Equal(t, []models.Rating{{UserID: "alice", Grade: 4}}, book.Ratings)
		assert.InDelta(t, 4.0, book.AverageRating, 1e-9)
		assert.Regexp(t, `^http://localhost:4000/images/etranger_\d+\.jpg$`, book.ImageURL)
		assert.Len(t, f.imageFiles(t), 1)

		stored, err := f.store.FindByID(ctx, book.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, book, stored)
	})

	t.Run("malformed payload", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Create(ctx, "alice", []byte(`{"title":`), f.upload(t, "a.png"), baseURL)
		assert.ErrorIs(t, err, services.ErrValidation)

		_, err = f.svc.Create(ctx, "alice", []byte(`{"title":"","author":"x","genre":"y"}`), f.upload(t, "a.png"), baseURL)
		assert.ErrorIs(t, err, services.ErrValidation)
		assert.Contains(t, err.Error(), "title")

		_, err = f.svc.Create(ctx, "alice", []byte(`{"title":"T","author":"A","genre":"G"}`), f.upload(t, "a.png"), baseURL)
		assert.ErrorIs(t, err, services.ErrValidation)
		assert.Contains(t, err.Error(), "year")

		_, err = f.svc.Create(ctx, "alice", []byte(`{"title":"T","author":"A","year":null,"genre":"G"}`), f.upload(t, "a.png"), baseURL)
		assert.ErrorIs(t, err, services.ErrValidation)

		_, err = f.svc.Create(ctx, "alice", []byte(`{"title":"T","author":"A","year":"","genre":"G"}`), f.upload(t, "a.png"), baseURL)
		assert.ErrorIs(t, err, services.ErrValidation)

		_, err = f.svc.Create(ctx, "alice", bookJSON("No cover"), nil, baseURL)
		assert.ErrorIs(t, err, services.ErrValidation)

		all, _ := f.store.FindAll(ctx)
		assert.Empty(t, all)
	})

	t.Run("corrupt image persists nothing", func(t *testing.T) {
		f := newFixture(t)
		upload := f.corruptUpload(t)

		_, err := f.svc.Create(ctx, "alice", bookJSON("La Peste"), upload, baseURL)
		assert.ErrorIs(t, err, images.ErrProcessing)

		all, _ := f.store.FindAll(ctx)
		assert.Empty(t, all)
		assert.Empty(t, f.imageFiles(t))
		assert.NoFileExists(t, upload.TempPath)
	})

	t.Run("store failure removes processed image", func(t *testing.T) {
		f := newFixture(t)
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockStore := mocks.NewMockBookStore(ctrl)
		mockStore.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(models.Book{}, errors.New("db down"))
		f.svc.Store = mockStore

		_, err := f.svc.Create(ctx, "alice", bookJSON("La Chute"), f.upload(t, "chute.png"), baseURL)
		assert.EqualError(t, err, "db down")
		assert.Empty(t, f.imageFiles(t))
	})
}

func TestBookService_Modify(t *testing.T) {
	ctx := context.Background()

	t.Run("owner replaces cover", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.Create(ctx, "alice", bookJSON("Noces"), f.upload(t, "noces.png"), baseURL)
		require.NoError(t, err)
		_, err = f.svc.Rate(ctx, "bob", created.ID.Hex(), 3)
		require.NoError(t, err)

		updated, err := f.svc.Modify(ctx, "alice", created.ID.Hex(),
			[]byte(`{"title":"Noces (réédition)","author":"Albert Camus","year":1950,"genre":"Essai","averageRating":0,"ratings":[]}`),
			f.upload(t, "noces-v2.png"), baseURL)
		require.NoError(t, err)

		assert.Equal(t, "Noces (réédition)", updated.Title)
		assert.NotEqual(t, created.ImageURL, updated.ImageURL)
		assert.Len(t, updated.Ratings, 1, "ratings are never taken from the payload")

		files := f.imageFiles(t)
		require.Len(t, files, 1)
		assert.Contains(t, updated.ImageURL, files[0])

		stored, _ := f.store.FindByID(ctx, created.ID.Hex())
		assert.Equal(t, "Essai", stored.Genre)
		assert.InDelta(t, 3.0, stored.AverageRating, 1e-9)
	})

	t.Run("owner edits without new image", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.Create(ctx, "alice", bookJSON("Noces"), f.upload(t, "noces.png"), baseURL)
		require.NoError(t, err)

		updated, err := f.svc.Modify(ctx, "alice", created.ID.Hex(), bookJSON("Noces II"), nil, baseURL)
		require.NoError(t, err)
		assert.Equal(t, created.ImageURL, updated.ImageURL)
		assert.Len(t, f.imageFiles(t), 1)
	})

	t.Run("non owner is rejected", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.Create(ctx, "alice", bookJSON("Noces"), f.upload(t, "noces.png"), baseURL)
		require.NoError(t, err)

		_, err = f.svc.Modify(ctx, "bob", created.ID.Hex(), bookJSON("Hijacked"), nil, baseURL)
		assert.ErrorIs(t, err, services.ErrNotOwner)

		stored, _ := f.store.FindByID(ctx, created.ID.Hex())
		assert.Equal(t, "Noces", stored.Title)
	})

	t.Run("corrupt replacement keeps old cover", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.Create(ctx, "alice", bookJSON("Noces"), f.upload(t, "noces.png"), baseURL)
		require.NoError(t, err)

		_, err = f.svc.Modify(ctx, "alice", created.ID.Hex(), bookJSON("Noces II"), f.corruptUpload(t), baseURL)
		assert.ErrorIs(t, err, images.ErrProcessing)

		stored, _ := f.store.FindByID(ctx, created.ID.Hex())
		assert.Equal(t, created.ImageURL, stored.ImageURL)
		assert.Len(t, f.imageFiles(t), 1)
	})

	t.Run("missing book", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Modify(ctx, "alice", "6650f1a2c3d4e5f601234567", bookJSON("x"), nil, baseURL)
		assert.ErrorIs(t, err, services.ErrBookNotFound)
	})
}

func TestBookService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, "alice", bookJSON("Caligula"), f.upload(t, "caligula.png"), baseURL)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, "bob", created.ID.Hex())
	assert.ErrorIs(t, err, services.ErrNotOwner)
	_, err = f.store.FindByID(ctx, created.ID.Hex())
	assert.NoError(t, err, "record must survive a rejected delete")
	assert.Len(t, f.imageFiles(t), 1)

	require.NoError(t, f.svc.Delete(ctx, "alice", created.ID.Hex()))
	_, err = f.store.FindByID(ctx, created.ID.Hex())
	assert.ErrorIs(t, err, services.ErrBookNotFound)
	assert.Empty(t, f.imageFiles(t))

	assert.ErrorIs(t, f.svc.Delete(ctx, "alice", created.ID.Hex()), services.ErrBookNotFound)
}

func TestBookService_Rate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.svc.Create(ctx, "alice", bookJSON("Le Mythe de Sisyphe"), f.upload(t, "sisyphe.png"), baseURL)
	require.NoError(t, err)
	id := created.ID.Hex()

	grades := []int{4, 5, 1, 3, 2, 5}
	sum := 0
	for i, g := range grades {
		sum += g
		book, err := f.svc.Rate(ctx, fmt.Sprintf("reader-%d", i), id, g)
		require.NoError(t, err)
		assert.Len(t, book.Ratings, i+1)
		assert.InDelta(t, float64(sum)/float64(i+1), book.AverageRating, 1e-9)
	}

	_, err = f.svc.Rate(ctx, "reader-0", id, 0)
	assert.ErrorIs(t, err, services.ErrAlreadyRated)
	stored, _ := f.store.FindByID(ctx, id)
	assert.InDelta(t, float64(sum)/float64(len(grades)), stored.AverageRating, 1e-9)

	_, err = f.svc.Rate(ctx, "reader-9", id, 6)
	assert.ErrorIs(t, err, services.ErrInvalidGrade)

	_, err = f.svc.Rate(ctx, "reader-9", "6650f1a2c3d4e5f601234567", 3)
	assert.ErrorIs(t, err, services.ErrBookNotFound)
}

func TestBookService_TopRatedAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i, grade := range []int{2, 5, 0, 4, 3} {
		book, err := f.svc.Create(ctx, "alice", bookJSON(fmt.Sprintf("Book %d", i)), f.upload(t, "c.png"), baseURL)
		require.NoError(t, err)
		_, err = f.svc.Rate(ctx, "bob", book.ID.Hex(), grade)
		require.NoError(t, err)
	}

	top, err := f.svc.GetTopRated(ctx)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []float64{5, 4, 3}, []float64{top[0].AverageRating, top[1].AverageRating, top[2].AverageRating})

	all, err := f.svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CatalogStats{TotalBooks: 5, RatedBooks: 5, TotalRatings: 5}, stats)
}
