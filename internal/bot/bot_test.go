package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sportbook/internal/api"
	"sportbook/internal/config"
	"sportbook/internal/model"
	"sportbook/internal/storage"
)

type fakeTG struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeTG) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeTG) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTG) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (f *fakeTG) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "testbot"}
}

func (f *fakeTG) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

func newTestBot(t *testing.T, baseURL string) (*Bot, *fakeTG) {
	t.Helper()
	db, err := storage.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tg := &fakeTG{}
	logger := zerolog.Nop()
	b, err := NewWithTelegramClient(tg, &config.Config{}, api.NewClient(baseURL, ""), db, &logger)
	require.NoError(t, err)
	return b, tg
}

func callback(userID, chatID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cq1",
		From:    &tgbotapi.User{ID: userID},
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}},
	}
}

func message(userID, chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 8,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
}

func TestConfirmCreatesBookingWithoutDiscountCode(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/bookings" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(model.Booking{ID: "b1", Status: model.StatusPending})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	b, tg := newTestBot(t, srv.URL)

	st := b.state.get(42)
	st.Step = stepPreview
	st.Draft.ResourceID = "court-1"
	st.Draft.ResourceName = "Cancha 1"
	st.Draft.BranchID = "br-1"
	st.Draft.Date = "2030-05-20"
	st.Draft.StartTime = "10:00"
	st.Draft.EndTime = "11:00"
	st.Draft.Quote = &api.DiscountQuote{OriginalPrice: 30, TotalPrice: 30}

	b.handleCallback(context.Background(), callback(42, 42, "confirm"))

	require.NotNil(t, got, "booking request must reach the backend")
	assert.Equal(t, "court-1", got["resourceId"])
	assert.True(t, strings.HasPrefix(got["startAt"].(string), "2030-05-20T10:00:00"))
	assert.True(t, strings.HasPrefix(got["endAt"].(string), "2030-05-20T11:00:00"))
	_, hasCode := got["discountCode"]
	assert.False(t, hasCode, "skipped code must not appear in the request")

	msgs := tg.messages()
	require.NotEmpty(t, msgs)
	assert.Contains(t, strings.Join(msgs, "\n"), "pendiente")
}

func TestConfirmIncludesAppliedDiscountCode(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/bookings" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(model.Booking{ID: "b1", Status: model.StatusPending})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	b, _ := newTestBot(t, srv.URL)

	st := b.state.get(42)
	st.Step = stepPreview
	st.Draft.ResourceID = "court-1"
	st.Draft.Date = "2030-05-20"
	st.Draft.StartTime = "10:00"
	st.Draft.EndTime = "11:00"
	st.Draft.DiscountCode = "VERANO10"
	st.Draft.Quote = &api.DiscountQuote{OriginalPrice: 30, TotalPrice: 27, Discount: 3}

	b.handleCallback(context.Background(), callback(42, 42, "confirm"))

	require.NotNil(t, got)
	assert.Equal(t, "VERANO10", got["discountCode"])
}

func fullWeekHours(open, close string) []model.BranchHours {
	hours := make([]model.BranchHours, 0, 7)
	for d := 0; d < 7; d++ {
		hours = append(hours, model.BranchHours{
			BranchID: "br-1", DayOfWeek: d, OpenTime: open, CloseTime: close,
		})
	}
	return hours
}

func TestCornerSelectionBlocksRectangle(t *testing.T) {
	var (
		mu        sync.Mutex
		blockReqs []map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/resources/court-1/calendar":
			_ = json.NewEncoder(w).Encode(api.WeekCalendar{})
		case r.URL.Path == "/branches/br-1/hours":
			_ = json.NewEncoder(w).Encode(fullWeekHours("10:00", "12:00"))
		case r.Method == http.MethodPost && r.URL.Path == "/branches/br-1/blocked-slots":
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			mu.Lock()
			blockReqs = append(blockReqs, req)
			mu.Unlock()
			_ = json.NewEncoder(w).Encode(model.BlockedSlot{ID: "bs1"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	b, tg := newTestBot(t, srv.URL)
	b.SetOperators(&config.OperatorsConfig{Operators: []config.OperatorConfig{
		{TelegramID: 42, UserID: "admin-1", Role: "branch_admin", BranchID: "br-1"},
	}})

	st := b.state.get(42)
	st.Blocking = true
	st.Step = stepWeek
	st.Draft.BranchID = "br-1"
	st.Draft.ResourceID = "court-1"
	st.Draft.ResourceName = "Cancha 1"
	st.Draft.WeekPivot = time.Date(2030, 5, 20, 0, 0, 0, 0, time.Local)

	ctx := context.Background()
	b.handleCallback(ctx, callback(42, 42, "corner:1:0"))
	b.handleCallback(ctx, callback(42, 42, "corner:2:1"))

	require.Equal(t, stepBlockReason, st.Step, "second corner must prompt for a reason")

	b.handleMessage(ctx, message(42, 42, "mantenimiento"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, blockReqs, 2, "one request per selected day")
	dates := map[string]bool{}
	for _, req := range blockReqs {
		dates[req["date"]] = true
		assert.Equal(t, "10:00", req["startTime"])
		assert.Equal(t, "12:00", req["endTime"])
		assert.Equal(t, "mantenimiento", req["reason"])
		assert.Equal(t, "court-1", req["resourceId"])
	}
	assert.True(t, dates["2030-05-20"])
	assert.True(t, dates["2030-05-21"])

	assert.Contains(t, strings.Join(tg.messages(), "\n"), "2 días bloqueados exitosamente")
}

func TestRejectReasonFlow(t *testing.T) {
	var rejectBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/bookings/b9/reject":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&rejectBody))
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/bookings/b9":
			_ = json.NewEncoder(w).Encode(model.Booking{ID: "b9", UserID: "u-ana"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	b, _ := newTestBot(t, srv.URL)
	b.SetOperators(&config.OperatorsConfig{Operators: []config.OperatorConfig{
		{TelegramID: 42, UserID: "admin-1", Role: "branch_admin", BranchID: "br-1"},
	}})

	ctx := context.Background()
	st := b.state.get(42)

	b.handleCallback(ctx, callback(42, 42, "adm:reject:b9"))
	require.Equal(t, stepRejectReason, st.Step)
	require.Nil(t, rejectBody, "no backend call before the reason arrives")

	b.handleMessage(ctx, message(42, 42, "horario en mantenimiento"))
	require.NotNil(t, rejectBody)
	assert.Equal(t, "horario en mantenimiento", rejectBody["reason"])
	assert.Equal(t, stepNone, st.Step)
}

func TestWeekNavRequiresResource(t *testing.T) {
	b, tg := newTestBot(t, "http://localhost:0")
	b.handleCallback(context.Background(), callback(42, 42, "week:next"))
	assert.Contains(t, strings.Join(tg.messages(), "\n"), "Elige primero una cancha")
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "pendiente", statusLabel(model.StatusPending))
	assert.Equal(t, "confirmada", statusLabel(model.StatusConfirmed))
	assert.Equal(t, "otro", statusLabel(model.BookingStatus("otro")))
}

func TestLoginNotVerifiedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"EMAIL_NOT_VERIFIED","message":"not verified"}}`))
	}))
	defer srv.Close()

	b, tg := newTestBot(t, srv.URL)
	b.handleMessage(context.Background(), message(42, 42, "/login ana@example.com secret"))

	assert.Contains(t, strings.Join(tg.messages(), "\n"), "no está verificado")
}

func TestOwnPendingBookingCancelFromGrid(t *testing.T) {
	pending := model.Booking{
		ID:         "b7",
		ResourceID: "court-1",
		UserID:     "u-me",
		StartAt:    time.Date(2030, 5, 21, 10, 0, 0, 0, time.Local),
		EndAt:      time.Date(2030, 5, 21, 11, 0, 0, 0, time.Local),
		Status:     model.StatusPending,
	}

	var (
		mu          sync.Mutex
		cancelCalls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/resources/court-1/calendar":
			_ = json.NewEncoder(w).Encode(api.WeekCalendar{Bookings: []model.Booking{pending}})
		case r.URL.Path == "/branches/br-1/hours":
			_ = json.NewEncoder(w).Encode(fullWeekHours("10:00", "12:00"))
		case r.Method == http.MethodPost && r.URL.Path == "/bookings/b7/cancel":
			mu.Lock()
			cancelCalls++
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	b, tg := newTestBot(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, b.db.LinkAccount(ctx, 42, "u-me", "tok"))

	st := b.state.get(42)
	st.Step = stepWeek
	st.Draft.BranchID = "br-1"
	st.Draft.ResourceID = "court-1"
	st.Draft.ResourceName = "Cancha 1"
	// default Sunday anchor: day index 2 is Tuesday 2030-05-21
	st.Draft.WeekPivot = time.Date(2030, 5, 20, 0, 0, 0, 0, time.Local)

	b.handleCallback(ctx, callback(42, 42, "mine:2:0"))

	mu.Lock()
	require.Zero(t, cancelCalls, "tapping the cell must only ask for confirmation")
	mu.Unlock()
	assert.Contains(t, strings.Join(tg.messages(), "\n"), "¿Quieres cancelarla?")

	var confirmData []string
	tg.mu.Lock()
	for _, c := range tg.sent {
		m, ok := c.(tgbotapi.MessageConfig)
		if !ok {
			continue
		}
		if markup, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
			for _, row := range markup.InlineKeyboard {
				for _, btn := range row {
					if btn.CallbackData != nil {
						confirmData = append(confirmData, *btn.CallbackData)
					}
				}
			}
		}
	}
	tg.mu.Unlock()
	assert.Contains(t, confirmData, "cxl:b7")

	b.handleCallback(ctx, callback(42, 42, "cxl:b7"))

	mu.Lock()
	assert.Equal(t, 1, cancelCalls)
	mu.Unlock()
	assert.Contains(t, strings.Join(tg.messages(), "\n"), "Reserva cancelada")
}

func TestMyBookingsOffersCancelForPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bookings/my" {
			_ = json.NewEncoder(w).Encode([]model.Booking{
				{ID: "b1", StartAt: time.Date(2030, 5, 21, 10, 0, 0, 0, time.Local),
					EndAt: time.Date(2030, 5, 21, 11, 0, 0, 0, time.Local), Status: model.StatusPending},
				{ID: "b2", StartAt: time.Date(2030, 5, 22, 10, 0, 0, 0, time.Local),
					EndAt: time.Date(2030, 5, 22, 11, 0, 0, 0, time.Local), Status: model.StatusConfirmed},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	b, tg := newTestBot(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, b.db.LinkAccount(ctx, 42, "u-me", "tok"))

	b.handleMyBookings(ctx, 42, 42)

	tg.mu.Lock()
	defer tg.mu.Unlock()
	require.NotEmpty(t, tg.sent)
	m, ok := tg.sent[len(tg.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	markup, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok, "pending bookings must carry a cancel button")
	require.Len(t, markup.InlineKeyboard, 1, "only the pending booking is cancellable")
	assert.Equal(t, "cxl:b1", *markup.InlineKeyboard[0][0].CallbackData)
}
