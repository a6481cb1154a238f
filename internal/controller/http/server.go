// Package http отдаёт страницы портала как JSON API: календарь и
// афишу, события с ответами, новости, команды, чат, кассу и живой
// поток изменений. Участник опознаётся заголовком X-Member-Token,
// роли проверяют сервисы, на управляющих маршрутах стоит ранний гейт.
package http

import (
	"net/http"
	"time"

	"github.com/atlasov/club_portal/internal/clock"
	"go.uber.org/zap"
)

// Deps собирает зависимости сервера. Поля Standings, Posters и Stream
// могут быть nil, соответствующие маршруты тогда отвечают 503.
type Deps struct {
	Calendar  CalendarReader
	Events    EventManager
	RSVPs     AttendanceBook
	News      NewsBoard
	Teams     TeamDirectory
	Members   MemberDirectory
	Chat      ChatBoard
	Treasury  TreasuryBook
	Standings LeagueTable
	Posters   PosterRenderer
	Templates EventTemplates
	Stream    Broadcaster
	DB        Pinger
	Clock     clock.Clock
}

// Server обработчики портального API
type Server struct {
	calendar  CalendarReader
	events    EventManager
	rsvps     AttendanceBook
	news      NewsBoard
	teams     TeamDirectory
	members   MemberDirectory
	chat      ChatBoard
	treasury  TreasuryBook
	standings LeagueTable
	posters   PosterRenderer
	templates EventTemplates
	stream    Broadcaster
	db        Pinger
	clock     clock.Clock

	clubName   string
	zone       *time.Location
	corsOrigin string
	logger     *zap.Logger
}

// NewServer создаёт новый сервер портала
func NewServer(deps Deps, clubName string, zone *time.Location, corsOrigin string, logger *zap.Logger) *Server {
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Server{
		calendar:   deps.Calendar,
		events:     deps.Events,
		rsvps:      deps.RSVPs,
		news:       deps.News,
		teams:      deps.Teams,
		members:    deps.Members,
		chat:       deps.Chat,
		treasury:   deps.Treasury,
		standings:  deps.Standings,
		posters:    deps.Posters,
		templates:  deps.Templates,
		stream:     deps.Stream,
		db:         deps.DB,
		clock:      clk,
		clubName:   clubName,
		zone:       zone,
		corsOrigin: corsOrigin,
		logger:     logger,
	}
}

// Routes собирает маршруты и цепочку middleware
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/home", requireMember(s.handleHome))
	mux.HandleFunc("GET /api/calendar", requireMember(s.handleMonth))
	mux.HandleFunc("GET /api/schedule", requireMember(s.handleWeek))
	mux.HandleFunc("GET /api/poster/week", requireMember(s.handleWeekPoster))
	mux.HandleFunc("GET /api/calendar.ics", s.handleCalendarFeed)

	mux.HandleFunc("POST /api/events", requireManager(s.handleEventCreate))
	mux.HandleFunc("GET /api/events/{id}", requireMember(s.handleEventGet))
	mux.HandleFunc("PUT /api/events/{id}", requireManager(s.handleEventUpdate))
	mux.HandleFunc("DELETE /api/events/{id}", requireManager(s.handleEventDelete))
	mux.HandleFunc("GET /api/events/{id}/responses", requireMember(s.handleEventResponses))
	mux.HandleFunc("POST /api/events/{id}/respond", requireMember(s.handleEventRespond))

	mux.HandleFunc("GET /api/news", requireMember(s.handleNewsList))
	mux.HandleFunc("POST /api/news", requireManager(s.handleNewsPublish))
	mux.HandleFunc("GET /api/news/{id}", requireMember(s.handleNewsGet))
	mux.HandleFunc("PUT /api/news/{id}", requireManager(s.handleNewsUpdate))
	mux.HandleFunc("DELETE /api/news/{id}", requireManager(s.handleNewsDelete))

	mux.HandleFunc("GET /api/teams", requireMember(s.handleTeamList))
	mux.HandleFunc("POST /api/teams", requireManager(s.handleTeamCreate))
	mux.HandleFunc("GET /api/teams/{id}", requireMember(s.handleTeamGet))
	mux.HandleFunc("PUT /api/teams/{id}", requireManager(s.handleTeamUpdate))
	mux.HandleFunc("DELETE /api/teams/{id}", requireManager(s.handleTeamDelete))
	mux.HandleFunc("GET /api/teams/{id}/roster", requireMember(s.handleRoster))
	mux.HandleFunc("POST /api/teams/{id}/roster", requireManager(s.handleRosterAdd))
	mux.HandleFunc("DELETE /api/teams/{id}/roster/{memberID}", requireManager(s.handleRosterRemove))

	mux.HandleFunc("GET /api/me", requireMember(s.handleMe))
	mux.HandleFunc("PUT /api/me", requireMember(s.handleMeUpdate))
	mux.HandleFunc("GET /api/members", requireMember(s.handleMemberList))
	mux.HandleFunc("POST /api/members", s.handleMemberRegister)
	mux.HandleFunc("PATCH /api/members/{id}", requireAdmin(s.handleMemberPatch))

	mux.HandleFunc("GET /api/chat/rooms", requireMember(s.handleRooms))
	mux.HandleFunc("POST /api/chat/rooms", requireManager(s.handleRoomCreate))
	mux.HandleFunc("DELETE /api/chat/rooms/{id}", requireManager(s.handleRoomDelete))
	mux.HandleFunc("GET /api/chat/rooms/{id}/messages", requireMember(s.handleMessages))
	mux.HandleFunc("POST /api/chat/rooms/{id}/messages", requireMember(s.handleMessagePost))

	mux.HandleFunc("GET /api/treasury/{teamID}/entries", requireMember(s.handleEntries))
	mux.HandleFunc("POST /api/treasury/{teamID}/entries", requireManager(s.handleEntryAdd))
	mux.HandleFunc("GET /api/treasury/{teamID}/balances", requireMember(s.handleBalances))

	mux.HandleFunc("GET /api/standings", requireMember(s.handleStandings))
	mux.HandleFunc("GET /api/stream", requireMember(s.handleStream))

	mux.Handle("/", notFound())

	var handler http.Handler = mux
	handler = resolveMember(s.members, s.logger, handler)
	handler = cors(s.corsOrigin, handler)
	handler = recoverPanics(s.logger, handler)
	handler = requestLogger(s.logger, handler)
	return handler
}

// serviceError отвечает статусом по классификации ошибки. Причина
// пятисотых остаётся в логе, наружу уходит безликий текст.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func notFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}
