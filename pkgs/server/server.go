// Package server is the JSON web boundary: cookie-authenticated message
// posting and the search/listing views. It is thin plumbing over the repos
// and the search package.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/tonghsuan/chirp/pkgs/repos/accountrepo"
	"github.com/tonghsuan/chirp/pkgs/repos/messagerepo"
	"github.com/tonghsuan/chirp/pkgs/repos/tweetrepo"
	"github.com/tonghsuan/chirp/pkgs/repos/userrepo"
)

type Server struct {
	db          *sqlx.DB
	addr        string
	accountRepo *accountrepo.Repo
	userRepo    *userrepo.Repo
	messageRepo *messagerepo.Repo
	tweetRepo   *tweetrepo.Repo
}

func New(db *sqlx.DB, addr string) *Server {
	return &Server{
		db:          db,
		addr:        addr,
		accountRepo: accountrepo.New(),
		userRepo:    userrepo.New(),
		messageRepo: messagerepo.New(),
		tweetRepo:   tweetrepo.New(),
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleRoot)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Post("/create_account", s.handleCreateAccount)
	r.Get("/create_message", s.handleCreateMessageForm)
	r.Post("/create_message", s.handleCreateMessage)
	r.Get("/search", s.handleSearch)
	r.Get("/all_messages", s.handleAllMessages)
	r.Get("/tweets", s.handleTweets)

	r.Get("/api/test", s.handleAPITest)
	r.Get("/api/data", s.handleAPIData)
	r.Get("/api/messages/{username}", s.handleAPIMessages)

	return r
}

func (s *Server) Start() error {
	log.WithField("addr", s.addr).Info("Starting web server")
	return http.ListenAndServe(s.addr, s.Router())
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Debug("Handled request")
	})
}

////////////////////////////////////////////////////////////////////////////////

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}

////////////////////////////////////////////////////////////////////////////////

// viewer is the credential state extracted from the request cookies.
// Credentials are carried in plaintext cookies, a defect inherited from the
// original design and out of scope to harden here.
type viewer struct {
	Username string
	UserID   int64
	LoggedIn bool
}

func (s *Server) viewerFromRequest(ctx context.Context, r *http.Request) viewer {
	username := cookieValue(r, "username")
	password := cookieValue(r, "password")
	if username == "" || password == "" {
		return viewer{}
	}

	account, err := s.accountRepo.GetByCredentials(ctx, s.db, username, password)
	if err != nil {
		log.WithError(err).Error("Failed to check credentials")
		return viewer{}
	}
	if account == nil {
		return viewer{}
	}
	return viewer{Username: username, UserID: account.IDUsers, LoggedIn: true}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func setSessionCookies(w http.ResponseWriter, username, password string, idUsers int64) {
	http.SetCookie(w, &http.Cookie{Name: "username", Value: username, Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "password", Value: password, Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: "id_users", Value: formatID(idUsers), Path: "/"})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{"username", "password", "id_users"} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
}
