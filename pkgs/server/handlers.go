package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/tonghsuan/chirp/pkgs/model"
	"github.com/tonghsuan/chirp/pkgs/search"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

////////////////////////////////////////////////////////////////////////////////

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := s.viewerFromRequest(ctx, r)

	messages, err := search.RecentMessages(ctx, s.db, v.UserID)
	if err != nil {
		log.WithError(err).Error("Failed to fetch recent messages")
		messages = nil
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logged_in": v.LoggedIn,
		"messages":  messages,
	})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	v := s.viewerFromRequest(r.Context(), r)
	writeJSON(w, http.StatusOK, map[string]any{"logged_in": v.LoggedIn})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	account, err := s.accountRepo.GetByCredentials(ctx, s.db, username, password)
	if err != nil {
		log.WithError(err).Error("Login query failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if account == nil {
		log.WithField("username", username).Info("Failed login attempt")
		writeError(w, http.StatusUnauthorized, "bad credentials")
		return
	}

	setSessionCookies(w, username, password, account.IDUsers)
	log.WithFields(log.Fields{"username": username, "id_users": account.IDUsers}).
		Info("User logged in")
	writeJSON(w, http.StatusOK, map[string]any{
		"logged_in": true,
		"id_users":  account.IDUsers,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]any{"logged_in": false})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := r.FormValue("username")
	password := r.FormValue("password")
	confirm := r.FormValue("confirm_password")

	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if password != confirm {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	existing, err := s.accountRepo.GetByUsername(ctx, s.db, username)
	if err != nil {
		log.WithError(err).Error("Account lookup failed")
		writeError(w, http.StatusInternalServerError, "error creating account")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "username already exists")
		return
	}

	// Accounts and users share an ID domain; the next ID clears both tables.
	maxAccount, err := s.accountRepo.MaxID(ctx, s.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error creating account")
		return
	}
	maxUser, err := s.userRepo.MaxID(ctx, s.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error creating account")
		return
	}
	nextID := maxAccount + 1
	if maxUser >= maxAccount {
		nextID = maxUser + 1
	}

	// Account and user rows are created together or not at all.
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		log.WithError(err).Error("Failed to begin account transaction")
		writeError(w, http.StatusInternalServerError, "error creating account")
		return
	}
	defer tx.Rollback()

	account := &model.Account{IDUsers: nextID, Username: username, Password: password}
	if err := s.accountRepo.Create(ctx, tx, account); err != nil {
		log.WithError(err).Error("Failed to create account")
		writeError(w, http.StatusInternalServerError, "error creating account")
		return
	}
	now := time.Now()
	user := &model.User{
		IDUsers:    nextID,
		CreatedAt:  now,
		UpdatedAt:  now,
		ScreenName: username,
		Name:       username,
	}
	if err := s.userRepo.Create(ctx, tx, user); err != nil {
		log.WithError(err).Error("Failed to create user")
		writeError(w, http.StatusInternalServerError, "error creating account")
		return
	}
	if err := tx.Commit(); err != nil {
		log.WithError(err).Error("Failed to commit account creation")
		writeError(w, http.StatusInternalServerError, "error creating account")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"account_created": true,
		"id_users":        nextID,
	})
}

func (s *Server) handleCreateMessageForm(w http.ResponseWriter, r *http.Request) {
	v := s.viewerFromRequest(r.Context(), r)
	if !v.LoggedIn {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logged_in": true})
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := s.viewerFromRequest(ctx, r)
	if !v.LoggedIn {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	text := r.FormValue("message_text")
	if text == "" {
		writeError(w, http.StatusBadRequest, "message cannot be empty")
		return
	}

	nextID, err := s.messageRepo.NextID(ctx, s.db, v.UserID)
	if err != nil {
		log.WithError(err).Error("Failed to compute next message id")
		writeError(w, http.StatusInternalServerError, "error creating message")
		return
	}
	msg := &model.Message{
		IDUsers:     v.UserID,
		IDMessage:   nextID,
		MessageText: text,
		CreatedAt:   time.Now(),
	}
	if err := s.messageRepo.Create(ctx, s.db, msg); err != nil {
		log.WithError(err).Error("Failed to create message")
		writeError(w, http.StatusInternalServerError, "error creating message")
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

////////////////////////////////////////////////////////////////////////////////

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := s.viewerFromRequest(ctx, r)

	query := r.URL.Query().Get("query")
	resp := search.Search(ctx, s.db, query, pageParam(r), v.UserID)

	writeJSON(w, http.StatusOK, map[string]any{
		"logged_in":     v.LoggedIn,
		"query":         resp.Query,
		"results":       resp.Results,
		"total_results": resp.TotalResults,
		"page":          resp.Page,
		"total_pages":   resp.TotalPages,
		"has_prev":      resp.HasPrev,
		"has_next":      resp.HasNext,
		"query_time_ms": resp.ElapsedMS,
		"error":         resp.Error,
	})
}

func (s *Server) handleAllMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := s.viewerFromRequest(ctx, r)

	page, err := search.Messages(ctx, s.db, s.messageRepo, pageParam(r), v.UserID)
	if err != nil {
		log.WithError(err).Error("Failed to fetch messages")
		writeJSON(w, http.StatusOK, map[string]any{
			"logged_in":   v.LoggedIn,
			"messages":    []search.MessageView{},
			"page":        1,
			"total_pages": 1,
			"has_prev":    false,
			"has_next":    false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logged_in":   v.LoggedIn,
		"messages":    page.Messages,
		"page":        page.Page,
		"total_pages": page.TotalPages,
		"has_prev":    page.HasPrev,
		"has_next":    page.HasNext,
	})
}

func (s *Server) handleTweets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := s.viewerFromRequest(ctx, r)

	page, err := search.Tweets(ctx, s.db, s.tweetRepo, pageParam(r))
	if err != nil {
		log.WithError(err).Error("Failed to fetch tweets")
		writeJSON(w, http.StatusOK, map[string]any{
			"logged_in":   v.LoggedIn,
			"tweets":      []search.TweetView{},
			"page":        1,
			"total_count": 0,
			"total_pages": 1,
			"has_prev":    false,
			"has_next":    false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logged_in":   v.LoggedIn,
		"tweets":      page.Tweets,
		"page":        page.Page,
		"total_count": page.TotalCount,
		"total_pages": page.TotalPages,
		"has_prev":    page.HasPrev,
		"has_next":    page.HasNext,
	})
}

////////////////////////////////////////////////////////////////////////////////

func (s *Server) handleAPITest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userCount, err := s.userRepo.Count(ctx, s.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	tweetCount, err := s.tweetRepo.CountAll(ctx, s.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"database_info": map[string]int{
			"user_count":  userCount,
			"tweet_count": tweetCount,
		},
	})
}

func (s *Server) handleAPIData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := search.Tweets(ctx, s.db, s.tweetRepo, 1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Top tags come from the materialized view and may lag behind writes.
	topTags, err := s.tweetRepo.TopTags(ctx, s.db, 5)
	if err != nil {
		log.WithError(err).Warn("Could not read tweet_tags_total")
		topTags = nil
	}
	tags := make([]map[string]any, 0, len(topTags))
	for _, tag := range topTags {
		tags = append(tags, map[string]any{"tag": tag.Tag, "count": tag.Total})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"tweets":   page.Tweets,
		"top_tags": tags,
	})
}

func (s *Server) handleAPIMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	account, err := s.accountRepo.GetByUsername(ctx, s.db, username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	messages, err := s.messageRepo.ListByUser(ctx, s.db, account.IDUsers)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		payload = append(payload, map[string]any{"id": m.IDMessage, "text": m.MessageText})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"username":      username,
		"message_count": len(payload),
		"messages":      payload,
	})
}
