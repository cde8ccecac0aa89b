// Package bot is the Telegram surface of the booking frontend: customers
// browse the week grid and book slots, admins confirm requests and block
// time ranges. All domain data comes from the backend API; only account
// links and preferences are local.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sportbook/internal/api"
	"sportbook/internal/calendar"
	"sportbook/internal/config"
	"sportbook/internal/dispatch"
	"sportbook/internal/metrics"
	"sportbook/internal/model"
	"sportbook/internal/selection"
	"sportbook/internal/storage"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// Bot wires the Telegram transport to the backend client.
type Bot struct {
	tg     telegramClient
	api    *api.Client
	db     *storage.DB
	cfg    *config.Config
	state  *stateStore
	drags  *selection.Store
	sender *sender
	logger *zerolog.Logger

	mu        sync.RWMutex
	operators *config.OperatorsConfig
}

func New(cfg *config.Config, apiClient *api.Client, db *storage.DB, logger *zerolog.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, err
	}
	botAPI.Debug = cfg.Telegram.Debug
	return newBot(&realTelegramClient{api: botAPI}, cfg, apiClient, db, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, cfg *config.Config, apiClient *api.Client, db *storage.DB, logger *zerolog.Logger) (*Bot, error) {
	return newBot(tg, cfg, apiClient, db, logger)
}

func newBot(tg telegramClient, cfg *config.Config, apiClient *api.Client, db *storage.DB, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	return &Bot{
		tg:        tg,
		api:       apiClient,
		db:        db,
		cfg:       cfg,
		state:     newStateStore(),
		drags:     selection.NewStore(cfg.SelectionTimeout()),
		sender:    newSender(tg),
		logger:    logger,
		operators: &config.OperatorsConfig{},
	}, nil
}

// SetOperators swaps in a fresh operator list; used by the config
// watcher so admin grants apply without a restart.
func (b *Bot) SetOperators(cfg *config.OperatorsConfig) {
	b.mu.Lock()
	b.operators = cfg
	b.mu.Unlock()
}

func (b *Bot) operator(userID int64) *config.OperatorConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.operators.ByTelegramID(userID)
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.operator(userID) != nil
}

func (b *Bot) anchor() calendar.WeekAnchor {
	if b.cfg.Calendar.WeekStartsOnMonday {
		return calendar.AnchorMonday
	}
	return calendar.AnchorSunday
}

func (b *Bot) hoursDefaults() calendar.HoursDefaults {
	d := calendar.DefaultHours
	if b.cfg.Calendar.DefaultOpenTime != "" {
		d.Open = b.cfg.Calendar.DefaultOpenTime
	}
	if b.cfg.Calendar.DefaultCloseTime != "" {
		d.Close = b.cfg.Calendar.DefaultCloseTime
	}
	return d
}

// userAPI returns a backend client acting as the linked user (or the
// operator's mapped backend identity).
func (b *Bot) userAPI(ctx context.Context, telegramID int64) *api.Client {
	if op := b.operator(telegramID); op != nil {
		return b.api.ForUser(op.UserID)
	}
	settings, err := b.db.GetUserSettings(ctx, telegramID)
	if err != nil || !settings.IsLinked() {
		return b.api
	}
	return b.api.ForUser(settings.UserID)
}

func (b *Bot) backendUserID(ctx context.Context, telegramID int64) string {
	if op := b.operator(telegramID); op != nil {
		return op.UserID
	}
	settings, err := b.db.GetUserSettings(ctx, telegramID)
	if err != nil {
		return ""
	}
	return settings.UserID
}

var (
	mainMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🗓 Reservar"),
			tgbotapi.NewKeyboardButton("📌 Mis reservas"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🔔 Notificaciones"),
			tgbotapi.NewKeyboardButton("ℹ️ Ayuda"),
		),
	)

	adminMenu = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📥 Pendientes"),
			tgbotapi.NewKeyboardButton("🚫 Bloquear horarios"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🕐 Horarios"),
			tgbotapi.NewKeyboardButton("📊 Exportar semana"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🗓 Reservar"),
			tgbotapi.NewKeyboardButton("ℹ️ Ayuda"),
		),
	)
)

func (b *Bot) sendMainMenu(chatID, userID int64) {
	msg := tgbotapi.NewMessage(chatID, "Elige una opción:")
	if b.isAdmin(userID) {
		msg.ReplyMarkup = adminMenu
	} else {
		msg.ReplyMarkup = mainMenu
	}
	_, _ = b.tg.Send(msg)
}

// Start begins polling updates until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("bot authorized")

	cleanup := time.NewTicker(time.Minute)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			if n := b.drags.Cleanup(); n > 0 {
				b.logger.Debug().Int("expired", n).Msg("dropped stale selections")
			}
		case update := <-updates:
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().
			Int64("user_id", update.Message.From.ID).
			Msg("handling message")
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch {
	case strings.HasPrefix(text, "/start"):
		b.state.reset(userID)
		b.drags.Reset(userID)
		b.reply(chatID, "¡Hola! Soy el asistente de reservas deportivas.")
		b.sendMainMenu(chatID, userID)
		return
	case text == "ℹ️ Ayuda" || strings.HasPrefix(text, "/help"):
		b.sendHelp(chatID, userID)
		return
	case strings.HasPrefix(text, "/login"):
		b.handleLogin(ctx, msg)
		return
	case strings.HasPrefix(text, "/verificar") || strings.HasPrefix(text, "/verify"):
		b.handleVerify(ctx, msg)
		return
	case strings.HasPrefix(text, "/logout"):
		if err := b.db.UnlinkAccount(ctx, userID); err != nil {
			b.reply(chatID, "No se pudo cerrar la sesión")
			return
		}
		b.reply(chatID, "Sesión cerrada")
		return
	case text == "🗓 Reservar" || strings.HasPrefix(text, "/reservar"):
		b.startBrowseFlow(ctx, chatID, userID, false)
		return
	case text == "📌 Mis reservas" || strings.HasPrefix(text, "/misreservas"):
		b.handleMyBookings(ctx, chatID, userID)
		return
	case text == "🔔 Notificaciones":
		on, err := b.db.ToggleNotifications(ctx, userID)
		if err != nil {
			b.reply(chatID, "No se pudo cambiar la configuración")
			return
		}
		if on {
			b.reply(chatID, "🔔 Notificaciones activadas")
		} else {
			b.reply(chatID, "🔕 Notificaciones desactivadas")
		}
		return
	case strings.HasPrefix(text, "/cancel"):
		b.state.reset(userID)
		b.drags.Reset(userID)
		b.reply(chatID, "Operación cancelada.")
		b.sendMainMenu(chatID, userID)
		return
	case text == "📥 Pendientes" && b.isAdmin(userID):
		b.handlePendingBookings(ctx, chatID, userID)
		return
	case text == "🚫 Bloquear horarios" && b.isAdmin(userID):
		b.startBlockFlow(ctx, chatID, userID)
		return
	case text == "🕐 Horarios" && b.isAdmin(userID):
		b.handleShowHours(ctx, chatID, userID)
		return
	case text == "📊 Exportar semana" && b.isAdmin(userID):
		b.handleExportWeek(ctx, chatID, userID)
		return
	}

	st := b.state.get(userID)
	switch st.Step {
	case stepDiscountCode:
		b.handleDiscountCode(ctx, chatID, userID, st, text)
	case stepRejectReason:
		b.handleRejectReason(ctx, chatID, userID, st, text)
	case stepBlockReason:
		b.handleBlockReason(ctx, chatID, userID, st, text)
	}
}

func (b *Bot) sendHelp(chatID, userID int64) {
	text := "Comandos disponibles:\n" +
		"/reservar — ver el calendario y reservar\n" +
		"/misreservas — tus reservas\n" +
		"/login <email> <contraseña> — vincular tu cuenta\n" +
		"/verificar <código> — verificar tu correo\n" +
		"/logout — desvincular la cuenta\n" +
		"/cancel — cancelar la operación actual"
	if b.isAdmin(userID) {
		text += "\n\nAdministración:\n" +
			"📥 Pendientes — solicitudes por confirmar\n" +
			"🚫 Bloquear horarios — marcar rangos no disponibles\n" +
			"🕐 Horarios — horario semanal de la sede\n" +
			"📊 Exportar semana — descargar la semana en Excel"
	}
	b.reply(chatID, text)
}

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message) {
	parts := strings.Fields(msg.Text)
	if len(parts) != 3 {
		b.reply(msg.Chat.ID, "Formato: /login correo@ejemplo.com contraseña")
		return
	}

	resp, err := b.api.Login(ctx, parts[1], parts[2])
	if err != nil {
		if api.IsEmailNotVerified(err) {
			b.reply(msg.Chat.ID, "Tu correo aún no está verificado. Revisa tu bandeja y usa /verificar <código>.")
			return
		}
		b.reply(msg.Chat.ID, "Correo o contraseña incorrectos")
		return
	}

	if err := b.db.LinkAccount(ctx, msg.From.ID, resp.User.ID, resp.Token); err != nil {
		b.reply(msg.Chat.ID, "No se pudo guardar la sesión")
		return
	}
	// the message holds a password; best effort delete
	_, _ = b.tg.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID))
	b.reply(msg.Chat.ID, fmt.Sprintf("¡Hola %s! Cuenta vinculada.", resp.User.Name))
}

func (b *Bot) handleVerify(ctx context.Context, msg *tgbotapi.Message) {
	parts := strings.Fields(msg.Text)
	if len(parts) != 2 {
		b.reply(msg.Chat.ID, "Formato: /verificar <código>")
		return
	}
	if err := b.api.VerifyEmail(ctx, parts[1]); err != nil {
		b.reply(msg.Chat.ID, "No se pudo verificar el correo. Revisa el código.")
		return
	}
	b.reply(msg.Chat.ID, "✅ Correo verificado. Ya puedes iniciar sesión con /login.")
}

func (b *Bot) handleMyBookings(ctx context.Context, chatID, userID int64) {
	userAPI := b.userAPI(ctx, userID)
	if b.backendUserID(ctx, userID) == "" {
		b.reply(chatID, "Vincula tu cuenta primero: /login correo@ejemplo.com contraseña")
		return
	}

	bookings, err := userAPI.ListMyBookings(ctx)
	if err != nil {
		b.reply(chatID, "Error al cargar tus reservas")
		return
	}
	if len(bookings) == 0 {
		b.reply(chatID, "No tienes reservas activas")
		return
	}

	var sb strings.Builder
	sb.WriteString("Tus reservas:\n")
	var cancelRows [][]tgbotapi.InlineKeyboardButton
	for _, bk := range bookings {
		sb.WriteString(fmt.Sprintf("• %s %s-%s — %s\n",
			bk.StartAt.Format("02/01"),
			bk.StartAt.Format("15:04"),
			bk.EndAt.Format("15:04"),
			statusLabel(bk.Status),
		))
		if bk.Status == model.StatusPending {
			label := fmt.Sprintf("❌ Cancelar %s %s", bk.StartAt.Format("02/01"), bk.StartAt.Format("15:04"))
			cancelRows = append(cancelRows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, "cxl:"+bk.ID)))
		}
	}
	out := tgbotapi.NewMessage(chatID, sb.String())
	if len(cancelRows) > 0 {
		out.ReplyMarkup = tgbotapi.InlineKeyboardMarkup{InlineKeyboard: cancelRows}
	}
	_, _ = b.tg.Send(out)
}

func statusLabel(status model.BookingStatus) string {
	switch status {
	case model.StatusPending:
		return "pendiente"
	case model.StatusConfirmed:
		return "confirmada"
	case model.StatusCancelled:
		return "cancelada"
	case model.StatusRejected:
		return "rechazada"
	case model.StatusCompleted:
		return "completada"
	case model.StatusNoShow:
		return "no asistió"
	}
	return string(status)
}

// --- browsing: tenant -> branch -> resource -> week grid ---

func (b *Bot) startBrowseFlow(ctx context.Context, chatID, userID int64, blocking bool) {
	b.state.reset(userID)
	st := b.state.get(userID)
	st.Blocking = blocking
	st.Step = stepTenant
	b.sendTenants(ctx, chatID)
}

func (b *Bot) sendTenants(ctx context.Context, chatID int64) {
	tenants, err := b.api.ListTenants(ctx)
	if err != nil {
		b.reply(chatID, "Error al cargar los clubes")
		return
	}
	active := tenants[:0]
	for _, t := range tenants {
		if t.Active {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		b.reply(chatID, "No hay clubes disponibles")
		return
	}

	var kb [][]tgbotapi.InlineKeyboardButton
	for _, t := range active {
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t.Name, "tenant:"+t.ID),
		))
	}
	out := tgbotapi.NewMessage(chatID, "Elige un club:")
	out.ReplyMarkup = tgbotapi.InlineKeyboardMarkup{InlineKeyboard: kb}
	_, _ = b.tg.Send(out)
}

func (b *Bot) sendBranches(ctx context.Context, chatID int64, st *userState) {
	branches, err := b.api.ListBranches(ctx, st.Draft.TenantID)
	if err != nil {
		b.reply(chatID, "Error al cargar las sedes")
		return
	}
	if len(branches) == 0 {
		b.reply(chatID, "Este club no tiene sedes disponibles")
		return
	}

	var kb [][]tgbotapi.InlineKeyboardButton
	for _, br := range branches {
		if !br.Active {
			continue
		}
		label := br.Name
		if len(br.Amenities) > 0 {
			label = fmt.Sprintf("%s (%s)", br.Name, strings.Join(br.Amenities, ", "))
		}
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "branch:"+br.ID),
		))
	}
	out := tgbotapi.NewMessage(chatID, "Elige una sede:")
	out.ReplyMarkup = tgbotapi.InlineKeyboardMarkup{InlineKeyboard: kb}
	_, _ = b.tg.Send(out)
}

func (b *Bot) sendResources(ctx context.Context, chatID int64, st *userState) {
	resources, err := b.api.ListResources(ctx, st.Draft.BranchID)
	if err != nil {
		b.reply(chatID, "Error al cargar las canchas")
		return
	}
	if len(resources) == 0 {
		b.reply(chatID, "Esta sede no tiene canchas disponibles")
		return
	}

	var kb [][]tgbotapi.InlineKeyboardButton
	for _, r := range resources {
		if !r.Active {
			continue
		}
		label := fmt.Sprintf("%s — %.0f %s/h", r.Name, r.HourlyPrice, r.Currency)
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "res:"+r.ID),
		))
	}
	out := tgbotapi.NewMessage(chatID, "Elige una cancha:")
	out.ReplyMarkup = tgbotapi.InlineKeyboardMarkup{InlineKeyboard: kb}
	_, _ = b.tg.Send(out)
}

// weekView is everything needed to render or act on one week of one
// resource.
type weekView struct {
	days     [7]time.Time
	rows     []calendar.TimeSlot
	grid     [][7]calendar.CellState
	bookings []model.Booking
}

func (b *Bot) fetchWeek(ctx context.Context, userID int64, st *userState) (*weekView, error) {
	days := calendar.WeekDays(st.Draft.WeekPivot, b.anchor())
	from := days[0]
	to := days[6].AddDate(0, 0, 1)

	cal, err := b.api.ResourceCalendar(ctx, st.Draft.ResourceID, from, to)
	if err != nil {
		return nil, err
	}
	hoursList, err := b.api.GetBranchHours(ctx, st.Draft.BranchID)
	if err != nil {
		return nil, err
	}
	hours := make(map[int]model.BranchHours, len(hoursList))
	for _, h := range hoursList {
		hours[h.DayOfWeek] = h
	}

	policy := calendar.MissingHoursOpen
	if st.Blocking {
		policy = calendar.MissingHoursClosed
	}
	rows, err := calendar.GridRows(hours, policy, b.hoursDefaults(), b.cfg.SlotInterval())
	if err != nil {
		return nil, err
	}
	if rows == nil {
		return &weekView{days: days}, nil
	}

	snap := calendar.Snapshot{
		Bookings:     cal.Bookings,
		BlockedSlots: cal.BlockedSlots,
		Hours:        hours,
		Discounts:    cal.Discounts,
	}
	opts := calendar.ClassifyOptions{
		Policy:     policy,
		Defaults:   b.hoursDefaults(),
		ResourceID: st.Draft.ResourceID,
		UserID:     b.backendUserID(ctx, userID),
		Now:        time.Now(),
	}
	grid := calendar.ClassifyWeek(days, rows, snap, opts)
	return &weekView{days: days, rows: rows, grid: grid, bookings: cal.Bookings}, nil
}

func (b *Bot) sendWeekGrid(ctx context.Context, chatID, userID int64, st *userState) {
	view, err := b.fetchWeek(ctx, userID, st)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("resource_id", st.Draft.ResourceID).Msg("week fetch failed")
		b.reply(chatID, "Error al cargar el calendario")
		return
	}
	if view.rows == nil {
		b.reply(chatID, "La sede está cerrada toda la semana")
		return
	}

	st.GridRows = len(view.rows)
	canGoBack := calendar.CanGoToPreviousWeek(st.Draft.WeekPivot, time.Now(), b.anchor())
	markup := GenerateWeekKeyboard(view.days, view.rows, view.grid, canGoBack, st.Blocking)

	title := fmt.Sprintf("📅 %s — semana del %s\n%s",
		st.Draft.ResourceName, view.days[0].Format("02/01/2006"), gridLegend(st.Blocking))

	if st.GridMsgID != 0 && st.GridChatID == chatID {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, st.GridMsgID, title, markup)
		if _, err := b.tg.Send(edit); err == nil {
			metrics.IncCalendarRender()
			return
		}
		// fall through and send as a new message
	}

	out := tgbotapi.NewMessage(chatID, title)
	out.ReplyMarkup = markup
	sent, err := b.tg.Send(out)
	if err == nil {
		st.GridMsgID = sent.MessageID
		st.GridChatID = chatID
	}
	metrics.IncCalendarRender()
}

// --- callbacks ---

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}
	data := cq.Data
	_ = b.answerCallback(cq.ID)
	if data == "noop" {
		return
	}

	userID := cq.From.ID
	chatID := cq.Message.Chat.ID
	st := b.state.get(userID)

	switch {
	case strings.HasPrefix(data, "tenant:"):
		b.handleTenantCallback(ctx, chatID, st, strings.TrimPrefix(data, "tenant:"))
	case strings.HasPrefix(data, "branch:"):
		b.handleBranchCallback(ctx, chatID, st, strings.TrimPrefix(data, "branch:"))
	case strings.HasPrefix(data, "res:"):
		b.handleResourceCallback(ctx, chatID, userID, st, strings.TrimPrefix(data, "res:"))
	case data == "week:prev" || data == "week:next":
		b.handleWeekNav(ctx, chatID, userID, st, data)
	case strings.HasPrefix(data, "cell:"):
		b.handleCellCallback(ctx, chatID, userID, st, data)
	case strings.HasPrefix(data, "mine:"):
		b.handleMineCellCallback(ctx, chatID, userID, st, data)
	case strings.HasPrefix(data, "cxl:"):
		b.handleCancelBookingCallback(ctx, chatID, userID, strings.TrimPrefix(data, "cxl:"))
	case strings.HasPrefix(data, "corner:"):
		b.handleCornerCallback(ctx, chatID, userID, st, data)
	case data == "disc:skip":
		b.handleDiscountSkip(ctx, chatID, userID, st)
	case data == "confirm":
		b.handleConfirmCallback(ctx, chatID, userID, st)
	case data == "cancel":
		b.state.reset(userID)
		b.drags.Reset(userID)
		b.reply(chatID, "Operación cancelada.")
	case strings.HasPrefix(data, "pay:"):
		b.handlePayCallback(ctx, chatID, userID, strings.TrimPrefix(data, "pay:"))
	case strings.HasPrefix(data, "adm:"):
		b.handleAdminDecision(ctx, chatID, userID, st, data)
	}
}

func (b *Bot) handleTenantCallback(ctx context.Context, chatID int64, st *userState, tenantID string) {
	st.Draft.TenantID = tenantID
	st.Step = stepBranch
	b.sendBranches(ctx, chatID, st)
}

func (b *Bot) handleBranchCallback(ctx context.Context, chatID int64, st *userState, branchID string) {
	st.Draft.BranchID = branchID
	st.Step = stepResource
	b.sendResources(ctx, chatID, st)
}

func (b *Bot) handleResourceCallback(ctx context.Context, chatID, userID int64, st *userState, resourceID string) {
	res, err := b.api.GetResource(ctx, resourceID)
	if err != nil {
		b.reply(chatID, "Error al cargar la cancha")
		return
	}
	st.Draft.ResourceID = res.ID
	st.Draft.ResourceName = res.Name
	st.Draft.SlotMinutes = res.SlotMinutes
	st.Draft.HourlyPrice = res.HourlyPrice
	st.Draft.Currency = res.Currency
	st.Draft.WeekPivot = time.Now()
	st.Step = stepWeek
	st.GridMsgID = 0

	_ = b.db.SetCurrentView(ctx, userID, st.Draft.TenantID, st.Draft.BranchID, res.ID)
	b.sendWeekGrid(ctx, chatID, userID, st)
}

func (b *Bot) handleWeekNav(ctx context.Context, chatID, userID int64, st *userState, data string) {
	if st.Draft.ResourceID == "" {
		b.reply(chatID, "Elige primero una cancha: 🗓 Reservar")
		return
	}
	if data == "week:next" {
		st.Draft.WeekPivot = calendar.NextWeek(st.Draft.WeekPivot)
	} else {
		if !calendar.CanGoToPreviousWeek(st.Draft.WeekPivot, time.Now(), b.anchor()) {
			return
		}
		st.Draft.WeekPivot = calendar.PreviousWeek(st.Draft.WeekPivot)
	}
	// navigating clears any half-made selection
	b.drags.Reset(userID)
	b.sendWeekGrid(ctx, chatID, userID, st)
}

func parseCellData(data, prefix string) (dayIdx, slotIdx int, ok bool) {
	parts := strings.Split(strings.TrimPrefix(data, prefix), ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	dayIdx, err := strconv.Atoi(parts[0])
	if err != nil || dayIdx < 0 || dayIdx > 6 {
		return 0, 0, false
	}
	slotIdx, err = strconv.Atoi(parts[1])
	if err != nil || slotIdx < 0 {
		return 0, 0, false
	}
	return dayIdx, slotIdx, true
}

func (b *Bot) handleCellCallback(ctx context.Context, chatID, userID int64, st *userState, data string) {
	dayIdx, slotIdx, ok := parseCellData(data, "cell:")
	if !ok || st.Draft.ResourceID == "" {
		return
	}

	// re-fetch before acting: the grid message may be stale
	view, err := b.fetchWeek(ctx, userID, st)
	if err != nil || view.rows == nil || slotIdx >= len(view.rows) {
		b.reply(chatID, "Error al cargar el calendario")
		return
	}
	state := view.grid[slotIdx][dayIdx]
	if state != calendar.CellFree && state != calendar.CellFreeWithDiscount {
		b.reply(chatID, "Ese horario ya no está disponible")
		b.sendWeekGrid(ctx, chatID, userID, st)
		return
	}

	slot := view.rows[slotIdx]
	day := view.days[dayIdx]
	st.Draft.Date = calendar.DateKey(day)
	st.Draft.StartTime = slot.Start
	st.Draft.EndTime = slot.End
	st.Draft.DiscountCode = ""
	st.Draft.Quote = nil
	st.Step = stepDiscountCode

	out := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Elegiste %s de %s a %s.\n¿Tienes un código de descuento? Escríbelo, o continúa sin código.",
		day.Format("02/01/2006"), slot.Start, slot.End))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Sin código", "disc:skip"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancelar", "cancel"),
		),
	)
	_, _ = b.tg.Send(out)
}

func (b *Bot) handleMineCellCallback(ctx context.Context, chatID, userID int64, st *userState, data string) {
	dayIdx, slotIdx, ok := parseCellData(data, "mine:")
	if !ok || st.Draft.ResourceID == "" {
		return
	}

	// re-fetch before acting: the grid message may be stale
	view, err := b.fetchWeek(ctx, userID, st)
	if err != nil || view.rows == nil || slotIdx >= len(view.rows) {
		b.reply(chatID, "Error al cargar el calendario")
		return
	}
	if view.grid[slotIdx][dayIdx] != calendar.CellPendingMine {
		b.reply(chatID, "Esa solicitud ya no está pendiente")
		b.sendWeekGrid(ctx, chatID, userID, st)
		return
	}

	me := b.backendUserID(ctx, userID)
	day := view.days[dayIdx]
	slot := view.rows[slotIdx]
	start := calendar.SlotStart(day, slot)
	end := calendar.SlotEnd(day, slot)

	var booking *model.Booking
	for i := range view.bookings {
		bk := &view.bookings[i]
		if bk.UserID == me && bk.Status == model.StatusPending && bk.Overlaps(start, end) {
			booking = bk
			break
		}
	}
	if booking == nil {
		b.reply(chatID, "Esa solicitud ya no está pendiente")
		b.sendWeekGrid(ctx, chatID, userID, st)
		return
	}

	out := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Tu solicitud del %s de %s a %s sigue pendiente.\n¿Quieres cancelarla?",
		day.Format("02/01/2006"), slot.Start, slot.End))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Sí, cancelar", "cxl:"+booking.ID),
			tgbotapi.NewInlineKeyboardButtonData("No", "noop"),
		),
	)
	_, _ = b.tg.Send(out)
}

func (b *Bot) handleCancelBookingCallback(ctx context.Context, chatID, userID int64, bookingID string) {
	if bookingID == "" {
		return
	}
	st := b.state.get(userID)
	d := b.dispatcher(ctx, chatID, userID, st)
	_ = d.CancelBooking(ctx, bookingID, "")
}

func (b *Bot) slotTimes(st *userState) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", st.Draft.Date, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	startMin, err := calendar.ParseClock(st.Draft.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endMin, err := calendar.ParseClock(st.Draft.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := day.Add(time.Duration(startMin) * time.Minute)
	end := day.Add(time.Duration(endMin) * time.Minute)
	return start, end, nil
}

func (b *Bot) handleDiscountCode(ctx context.Context, chatID, userID int64, st *userState, code string) {
	if code == "" {
		return
	}
	b.sendPreview(ctx, chatID, userID, st, code)
}

func (b *Bot) handleDiscountSkip(ctx context.Context, chatID, userID int64, st *userState) {
	if st.Step != stepDiscountCode {
		return
	}
	b.sendPreview(ctx, chatID, userID, st, "")
}

func (b *Bot) sendPreview(ctx context.Context, chatID, userID int64, st *userState, code string) {
	start, end, err := b.slotTimes(st)
	if err != nil {
		b.reply(chatID, "El horario elegido ya no es válido, empieza de nuevo: 🗓 Reservar")
		b.state.reset(userID)
		return
	}

	quote, err := b.userAPI(ctx, userID).CalculateDiscount(ctx, api.DiscountQuoteRequest{
		Code:       code,
		BranchID:   st.Draft.BranchID,
		ResourceID: st.Draft.ResourceID,
		StartAt:    start,
		EndAt:      end,
	})
	if err != nil {
		if code != "" {
			b.reply(chatID, "Código no válido. Escribe otro código o continúa sin código.")
			return
		}
		b.reply(chatID, "Error al calcular el precio")
		return
	}

	st.Draft.Quote = quote
	if quote.Discount > 0 && code != "" {
		st.Draft.DiscountCode = code
	} else {
		st.Draft.DiscountCode = ""
	}
	st.Step = stepPreview

	var sb strings.Builder
	sb.WriteString("Revisa tu reserva:\n\n")
	sb.WriteString(fmt.Sprintf("🏟 %s\n📅 %s\n🕐 %s-%s\n",
		st.Draft.ResourceName, st.Draft.Date, st.Draft.StartTime, st.Draft.EndTime))
	if quote.Discount > 0 {
		sb.WriteString(fmt.Sprintf("💰 Precio: %.2f %s (antes %.2f, descuento %.2f)\n",
			quote.TotalPrice, st.Draft.Currency, quote.OriginalPrice, quote.Discount))
	} else {
		sb.WriteString(fmt.Sprintf("💰 Precio: %.2f %s\n", quote.TotalPrice, st.Draft.Currency))
	}
	sb.WriteString("\n¿Confirmar?")

	out := tgbotapi.NewMessage(chatID, sb.String())
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirmar", "confirm"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancelar", "cancel"),
		),
	)
	_, _ = b.tg.Send(out)
}

func (b *Bot) handleConfirmCallback(ctx context.Context, chatID, userID int64, st *userState) {
	if st.Step != stepPreview {
		b.reply(chatID, "La operación expiró, empieza de nuevo: 🗓 Reservar")
		return
	}
	start, end, err := b.slotTimes(st)
	if err != nil {
		b.reply(chatID, "El horario elegido ya no es válido")
		return
	}

	req := api.BookingRequest{
		ResourceID: st.Draft.ResourceID,
		StartAt:    start,
		EndAt:      end,
	}
	if st.Draft.DiscountCode != "" {
		req.DiscountCode = st.Draft.DiscountCode
	}

	d := b.dispatcher(ctx, chatID, userID, st)
	booking, err := d.CreateBooking(ctx, req)
	if err != nil {
		return
	}
	metrics.IncBookingCreated(string(booking.Status))
	st.Step = stepWeek

	out := tgbotapi.NewMessage(chatID, "Tu solicitud quedó pendiente de confirmación. ¿Quieres pagar ahora?")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Pagar ahora", "pay:"+booking.ID),
			tgbotapi.NewInlineKeyboardButtonData("Después", "noop"),
		),
	)
	_, _ = b.tg.Send(out)
}

func (b *Bot) handlePayCallback(ctx context.Context, chatID, userID int64, bookingID string) {
	st := b.state.get(userID)
	d := b.dispatcher(ctx, chatID, userID, st)
	_ = d.PayBooking(ctx, bookingID, "")
}

// dispatcher builds a per-interaction dispatcher that reports into the
// chat and refreshes the open grid.
func (b *Bot) dispatcher(ctx context.Context, chatID, userID int64, st *userState) *dispatch.Dispatcher {
	logger := zerolog.Ctx(ctx)
	refetch := dispatch.RefetchFunc(func(ctx context.Context) {
		if st.Draft.ResourceID != "" && st.GridMsgID != 0 {
			b.sendWeekGrid(ctx, chatID, userID, st)
		}
	})
	return dispatch.New(b.userAPI(ctx, userID), chatNotifier{b: b, chatID: chatID}, refetch, *logger)
}

type chatNotifier struct {
	b      *Bot
	chatID int64
}

func (n chatNotifier) Success(msg string) { n.b.reply(n.chatID, "✅ "+msg) }
func (n chatNotifier) Error(msg string)   { n.b.reply(n.chatID, "⚠️ "+msg) }

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) answerCallback(id string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, ""))
	return err
}
