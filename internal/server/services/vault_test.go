package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/common"
	"docvault/internal/cryptox"
	"docvault/internal/logging"
	"docvault/internal/server/blob"
	"docvault/internal/server/models"
)

type vaultEnv struct {
	db     *sql.DB
	mock   sqlmock.Sqlmock
	mgr    *memManager
	blobs  *blob.MemoryStore
	cipher *cryptox.Cipher
	vault  *VaultService
	shares *ShareService
}

func newVaultEnv(t *testing.T) *vaultEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cipher, err := cryptox.NewCipher([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	events := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "vault_events_total"}, []string{"event"})

	mgr := newMemManager()
	blobs := blob.NewMemoryStore()

	return &vaultEnv{
		db:     db,
		mock:   mock,
		mgr:    mgr,
		blobs:  blobs,
		cipher: cipher,
		vault:  NewVaultService(db, mgr, blobs, cipher, logger, events),
		shares: NewShareService(db, mgr, logger, events, 48*time.Hour),
	}
}

func TestUpload_EncryptsEverythingAtRest(t *testing.T) {
	env := newVaultEnv(t)
	ctx := context.Background()

	content := []byte("very sensitive passport scan")
	doc, err := env.vault.Upload(ctx, "u1", "my passport", "travel document", models.DocTypePassport, "passport.pdf", content)
	require.NoError(t, err)

	assert.Equal(t, "u1", doc.OwnerID)
	assert.Equal(t, "passport.pdf", doc.FileName)
	assert.Equal(t, int64(0), doc.Downloads)
	assert.NotEmpty(t, doc.BlobRef)

	// blob at rest must be ciphertext, not the plaintext
	raw, err := env.blobs.Get(ctx, doc.BlobRef)
	require.NoError(t, err)
	assert.NotEqual(t, content, raw)
	assert.False(t, bytes.Contains(raw, content))

	plain, err := env.cipher.Decrypt(raw)
	require.NoError(t, err)
	assert.Equal(t, content, plain)
}

func TestUpload_DocTypeHandling(t *testing.T) {
	env := newVaultEnv(t)
	ctx := context.Background()

	doc, err := env.vault.Upload(ctx, "u1", "t", "", "", "f.bin", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, models.DocTypeOther, doc.DocType)

	_, err = env.vault.Upload(ctx, "u1", "t", "", "Selfie", "f.bin", []byte("x"))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpload_SanitizesFileName(t *testing.T) {
	env := newVaultEnv(t)

	doc, err := env.vault.Upload(context.Background(), "u1", "t", "", models.DocTypeOther, `C:\tmp\ré:sumé.pdf`, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "re-sume.pdf", doc.FileName)
}

func TestUpload_CompensatesBlobOnInsertFailure(t *testing.T) {
	env := newVaultEnv(t)
	env.mgr.docs.createErr = errors.New("insert failed")

	_, err := env.vault.Upload(context.Background(), "u1", "t", "", models.DocTypeOther, "f.bin", []byte("x"))
	require.Error(t, err)

	// no dangling blob without a record
	assert.Equal(t, 0, env.blobs.Len())
}

func TestDownload_ShareScenario(t *testing.T) {
	env := newVaultEnv(t)
	ctx := context.Background()
	t0 := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	env.shares.nowFunc = func() time.Time { return t0 }

	content := []byte("passport bytes")
	doc, err := env.vault.Upload(ctx, "u1", "passport", "", models.DocTypePassport, "passport.pdf", content)
	require.NoError(t, err)
	assert.Equal(t, int64(0), doc.Downloads)

	share, err := env.shares.Grant(ctx, doc.ID, "u1", "u2", true, 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(48*time.Hour), share.ExpiresAt)

	// recipient downloads one hour in
	res, err := env.vault.Download(ctx, doc.ID, "u2", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, content, res.Content)
	assert.Equal(t, "passport.pdf", res.FileName)
	assert.Equal(t, int64(1), res.Downloads)

	// the grant has lapsed at +49h
	_, err = env.vault.Download(ctx, doc.ID, "u2", t0.Add(49*time.Hour))
	assert.ErrorIs(t, err, common.ErrForbidden)

	// revocation by a non-owner is refused
	err = env.shares.Revoke(ctx, share.ID, "u2")
	assert.ErrorIs(t, err, common.ErrForbidden)

	// owner revokes before expiry, then still downloads fine
	require.NoError(t, env.shares.Revoke(ctx, share.ID, "u1"))

	_, err = env.vault.Download(ctx, doc.ID, "u2", t0.Add(2*time.Hour))
	assert.ErrorIs(t, err, common.ErrForbidden)

	res, err = env.vault.Download(ctx, doc.ID, "u1", t0.Add(1000*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Downloads)
}

func TestDownload_CapabilityGate(t *testing.T) {
	env := newVaultEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	doc, err := env.vault.Upload(ctx, "u1", "t", "", models.DocTypeID, "id.png", []byte("x"))
	require.NoError(t, err)

	// active in expiry terms, but view-only
	share, err := env.shares.Grant(ctx, doc.ID, "u1", "u2", false, 48*time.Hour)
	require.NoError(t, err)
	assert.True(t, share.Active(now.Add(time.Hour)))

	_, err = env.vault.Download(ctx, doc.ID, "u2", now.Add(time.Hour))
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestDownload_NotFound(t *testing.T) {
	env := newVaultEnv(t)

	_, err := env.vault.Download(context.Background(), "no-such-doc", "u1", time.Now())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDownload_BlobMissingIsDistinct(t *testing.T) {
	env := newVaultEnv(t)
	ctx := context.Background()

	// record without a blob: a state upload atomicity should prevent
	doc := &models.Document{ID: "d1", OwnerID: "u1", BlobRef: "gone", FileName: "f.bin"}
	require.NoError(t, env.mgr.docs.Create(ctx, doc))

	_, err := env.vault.Download(ctx, "d1", "u1", time.Now())
	assert.ErrorIs(t, err, common.ErrBlobMissing)
	assert.NotErrorIs(t, err, common.ErrNotFound)
	assert.NotErrorIs(t, err, common.ErrForbidden)
}

func TestDownload_CorruptedContentIsDistinct(t *testing.T) {
	env := newVaultEnv(t)
	ctx := context.Background()

	doc, err := env.vault.Upload(ctx, "u1", "t", "", models.DocTypeOther, "f.bin", []byte("payload"))
	require.NoError(t, err)

	// corrupt the stored ciphertext
	raw, err := env.blobs.Get(ctx, doc.BlobRef)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	require.NoError(t, env.blobs.Put(ctx, doc.BlobRef, raw))

	_, err = env.vault.Download(ctx, doc.ID, "u1", time.Now())
	assert.ErrorIs(t, err, common.ErrCorruptedContent)
	assert.NotErrorIs(t, err, common.ErrForbidden)
}

func TestDownload_CounterFailureDoesNotFailDownload(t *testing.T) {
	env := newVaultEnv(t)
	ctx := context.Background()

	doc, err := env.vault.Upload(ctx, "u1", "t", "", models.DocTypeOther, "f.bin", []byte("payload"))
	require.NoError(t, err)

	env.mgr.docs.incErr = errors.New("counter table on fire")

	res, err := env.vault.Download(ctx, doc.ID, "u1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), res.Content)
	assert.Equal(t, int64(0), res.Downloads)
}

func TestDownload_EmptyFileIsValid(t *testing.T) {
	env := newVaultEnv(t)
	ctx := context.Background()

	doc, err := env.vault.Upload(ctx, "u1", "empty", "", models.DocTypeOther, "empty.txt", []byte{})
	require.NoError(t, err)

	res, err := env.vault.Download(ctx, doc.ID, "u1", time.Now())
	require.NoError(t, err)
	assert.Empty(t, res.Content)
	assert.Equal(t, int64(1), res.Downloads)
}

func TestDownload_ConcurrentCounterMonotonicity(t *testing.T) {
	env := newVaultEnv(t)
	ctx := context.Background()

	doc, err := env.vault.Upload(ctx, "u1", "t", "", models.DocTypeOther, "f.bin", []byte("payload"))
	require.NoError(t, err)

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.vault.Download(ctx, doc.ID, "u1", time.Now())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := env.vault.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.Downloads)
}

func TestDelete_CascadesSharesAndBlob(t *testing.T) {
	env := newVaultEnv(t)
	ctx := context.Background()

	doc, err := env.vault.Upload(ctx, "u1", "t", "", models.DocTypeOther, "f.bin", []byte("payload"))
	require.NoError(t, err)
	_, err = env.shares.Grant(ctx, doc.ID, "u1", "u2", true, 48*time.Hour)
	require.NoError(t, err)

	env.mock.ExpectBegin()
	env.mock.ExpectCommit()

	require.NoError(t, env.vault.Delete(ctx, doc.ID, "u1"))

	_, err = env.vault.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	share, err := env.shares.FindActive(ctx, doc.ID, "u2", time.Now())
	require.NoError(t, err)
	assert.Nil(t, share)

	assert.Equal(t, 0, env.blobs.Len())
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestDelete_NonOwnerForbidden(t *testing.T) {
	env := newVaultEnv(t)
	ctx := context.Background()

	doc, err := env.vault.Upload(ctx, "u1", "t", "", models.DocTypeOther, "f.bin", []byte("payload"))
	require.NoError(t, err)

	err = env.vault.Delete(ctx, doc.ID, "u2")
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = env.vault.Get(ctx, doc.ID)
	require.NoError(t, err)
}

func TestListSharedWith_SkipsDeletedDocuments(t *testing.T) {
	env := newVaultEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	doc1, err := env.vault.Upload(ctx, "u1", "one", "", models.DocTypeOther, "a.bin", []byte("a"))
	require.NoError(t, err)
	doc2, err := env.vault.Upload(ctx, "u1", "two", "", models.DocTypeOther, "b.bin", []byte("b"))
	require.NoError(t, err)

	_, err = env.shares.Grant(ctx, doc1.ID, "u1", "u2", true, 48*time.Hour)
	require.NoError(t, err)
	_, err = env.shares.Grant(ctx, doc2.ID, "u1", "u2", true, 48*time.Hour)
	require.NoError(t, err)

	// doc2 vanishes between the share query and the document fetch
	require.NoError(t, env.mgr.docs.Delete(ctx, doc2.ID))

	got, err := env.vault.ListSharedWith(ctx, "u2", now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, doc1.ID, got[0].Document.ID)
	assert.Equal(t, "one", got[0].Document.Title)
}
