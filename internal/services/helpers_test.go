package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/storage"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

// Send records email. Inline readers are only valid during Send, so their
// contents are copied the way a real mailer would consume them.
func (m *fakeMailer) Send(_ context.Context, email Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	inline := make([]InlineImage, 0, len(email.Inline))
	for _, img := range email.Inline {
		data, err := io.ReadAll(img.Reader)
		if err != nil {
			return err
		}
		inline = append(inline, InlineImage{Name: img.Name, Reader: bytes.NewReader(data)})
	}
	email.Inline = inline
	m.sent = append(m.sent, email)
	return nil
}

func inlineContent(t *testing.T, img InlineImage) string {
	t.Helper()
	data, err := io.ReadAll(img.Reader)
	require.NoError(t, err)
	return string(data)
}

func (m *fakeMailer) last(t *testing.T) Email {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no email sent")
	return m.sent[len(m.sent)-1]
}

type sentSMS struct {
	To   string
	Body string
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []sentSMS
}

func (s *fakeSMS) SendSMS(to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentSMS{To: to, Body: body})
	return nil
}

type countingKicker struct {
	mu    sync.Mutex
	kicks int
}

func (k *countingKicker) Kick() {
	k.mu.Lock()
	k.kicks++
	k.mu.Unlock()
}

func (k *countingKicker) count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.kicks
}

var errMailDown = errors.New("smtp unavailable")

const testItems = `[{"id":1,"name":"Newspaper","price":"₹12-15/kg","category":"paper"},{"id":4,"name":"Cardboard","price":"₹8/kg","category":"paper"}]`

func testAddressInput() models.AddressInput {
	return models.AddressInput{Street: "12 MG Road", Area: "Indiranagar", City: "Bengaluru", Pincode: "560038"}
}

func createUser(t *testing.T, store storage.Store, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "Asha", Email: email, Phone: "+919876543210", Password: "hash"}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

// createPendingBooking inserts a booking directly, bypassing the outbox.
func createPendingBooking(t *testing.T, store storage.Store, userID uint) *models.Booking {
	t.Helper()
	items, err := models.ParseSelectedItems(testItems)
	require.NoError(t, err)
	b := &models.Booking{UserID: userID, ServiceID: 2, ServiceTitle: "Paper & Cardboard", SelectedItems: items}
	require.NoError(t, store.CreateBooking(context.Background(), b, nil))
	return b
}

func pendingTasks(t *testing.T, store storage.Store) []*models.OutboxTask {
	t.Helper()
	tasks, err := store.GetTasksByStatus(context.Background(), models.TaskStatusPending, 0)
	require.NoError(t, err)
	return tasks
}

func taskKinds(tasks []*models.OutboxTask) []string {
	kinds := make([]string, 0, len(tasks))
	for _, task := range tasks {
		kinds = append(kinds, task.Kind)
	}
	return kinds
}

// multipartFiles builds file headers the way fiber hands them to handlers.
func multipartFiles(t *testing.T, files map[string]string) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["images"]
}

func newTestMedia(t *testing.T, maxImages int) *MediaIntake {
	t.Helper()
	store, err := NewLocalMediaStore(t.TempDir())
	require.NoError(t, err)
	return NewMediaIntake(store, maxImages, zap.NewNop())
}
