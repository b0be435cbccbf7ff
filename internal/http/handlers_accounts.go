package http

import (
	"net/http"
	"strings"

	applog "nestegg/internal/log"
)

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.accounts.ListConnections(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Data(nonNil(conns)).Write(w)
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, applog.OpParse, err)
		return
	}
	c, err := s.accounts.CreateConnection(r.Context(), userID(r), req.toCore())
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(c).Write(w)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	conn := strings.TrimSpace(r.URL.Query().Get("connection"))
	accounts, err := s.accounts.ListAccounts(r.Context(), userID(r), conn)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	for i := range accounts {
		accounts[i].Balances = nonNil(accounts[i].Balances)
	}
	NewJSONResponse().Data(nonNil(accounts)).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, applog.OpParse, err)
		return
	}
	a, err := req.toCore(s.now())
	if err != nil {
		s.fail(w, r, applog.OpValidate, err)
		return
	}
	created, err := s.accounts.CreateAccount(r.Context(), userID(r), a)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	created.Balances = nonNil(created.Balances)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/accounts/"+created.ID).
		Data(created).
		Write(w)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.accounts.GetAccount(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	a.Balances = nonNil(a.Balances)
	NewJSONResponse().Data(a).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.DeleteAccount(r.Context(), userID(r), r.PathValue("id")); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListBalances(w http.ResponseWriter, r *http.Request) {
	since, err := ParseSince(r.URL.Query(), s.overview.Since())
	if err != nil {
		s.fail(w, r, applog.OpParse, err)
		return
	}
	points, err := s.accounts.ListBalances(r.Context(), userID(r), r.PathValue("id"), since)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Data(nonNil(points)).Write(w)
}

// handleLatestBalance answers null for an account without history.
func (s *Server) handleLatestBalance(w http.ResponseWriter, r *http.Request) {
	p, err := s.accounts.LatestBalance(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Data(p).Write(w)
}

func (s *Server) handleRecordBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, applog.OpParse, err)
		return
	}
	p, err := req.toCore(s.now())
	if err != nil {
		s.fail(w, r, applog.OpValidate, err)
		return
	}
	saved, err := s.accounts.RecordBalance(r.Context(), userID(r), r.PathValue("id"), p)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(saved).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.accounts.ListTransactions(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	NewJSONResponse().Data(nonNil(txs)).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, applog.OpParse, err)
		return
	}
	tx, err := req.toCore()
	if err != nil {
		s.fail(w, r, applog.OpValidate, err)
		return
	}
	saved, err := s.accounts.CreateTransaction(r.Context(), userID(r), r.PathValue("id"), tx)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(saved).Write(w)
}
