// Package nastest provides an in-memory NAS server for tests.
package nastest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notanas/notanas-cli/internal/constants"
	"github.com/notanas/notanas-cli/internal/models"
)

// Credentials accepted by POST /auth.
const (
	Username = "admin"
	Password = "secret"
)

type otlRecord struct {
	fileID    string
	expiresAt time.Time
	remaining int
}

// Server is a fake NAS server backed by an httptest.Server.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	tokens   map[string]bool
	root     []models.FileEntry
	children map[string][]models.FileEntry
	content  map[string][]byte
	otls     map[string]*otlRecord
	calls    map[string]int
	queries  []string
	gates    map[string]chan struct{}
	statuses map[string]int
	noDispo  bool
}

// NewServer starts a server with a single root folder "r1" containing
// "Docs" (folder "d1") and "report.pdf" (file "f1"); "d1" holds "notes.txt" ("f2").
func NewServer() *Server {
	s := &Server{
		tokens:   make(map[string]bool),
		children: make(map[string][]models.FileEntry),
		content:  make(map[string][]byte),
		otls:     make(map[string]*otlRecord),
		calls:    make(map[string]int),
		gates:    make(map[string]chan struct{}),
		statuses: make(map[string]int),
	}
	s.root = []models.FileEntry{{ID: "r1", Name: "drive", IsDir: true}}
	s.children["r1"] = []models.FileEntry{
		{ID: "d1", Name: "Docs", IsDir: true, Parent: "drive"},
		{ID: "f1", Name: "report.pdf", Ext: ".pdf", Parent: "drive"},
	}
	s.children["d1"] = []models.FileEntry{
		{ID: "f2", Name: "notes.txt", Ext: ".txt", Parent: "Docs"},
	}
	s.content["f1"] = []byte("%PDF-1.4 quarterly report")
	s.content["f2"] = []byte("remember the milk")

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+constants.AuthPath, s.handleAuth)
	mux.HandleFunc("GET "+constants.RootListingPath, s.authed(s.handleRoot))
	mux.HandleFunc("GET "+constants.ChildrenPath, s.authed(s.handleChildren))
	mux.HandleFunc("GET "+constants.SearchPath+"{query}", s.authed(s.handleSearch))
	mux.HandleFunc("GET "+constants.OTLCreatePath, s.authed(s.handleCreateOTL))
	mux.HandleFunc("GET "+constants.DownloadPath, s.authed(s.handleDownload))
	mux.HandleFunc("DELETE "+constants.DeletePath, s.authed(s.handleDelete))
	mux.HandleFunc("GET "+constants.OTLRedeemPath, s.handleRedeem)

	s.Server = httptest.NewServer(mux)
	return s
}

// IssueToken registers and returns a valid bearer token.
func (s *Server) IssueToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	s.tokens[tok] = true
	return tok
}

// RevokeAll makes every issued token invalid, so the next call gets 401.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]bool)
}

// SetChildren replaces the listing of a folder.
func (s *Server) SetChildren(folderID string, entries []models.FileEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[folderID] = entries
}

// SetContent sets the downloadable bytes of a file.
func (s *Server) SetContent(fileID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[fileID] = data
}

// SetStatus forces every request on path to answer with status. 0 clears it.
func (s *Server) SetStatus(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.statuses, path)
		return
	}
	s.statuses[path] = status
}

// OmitContentDisposition makes downloads answer without a filename header.
func (s *Server) OmitContentDisposition() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noDispo = true
}

// Hold makes listing requests for folderID block until the returned release
// function is called. The listing is read before blocking, so a held response
// reflects the folder as it was when the request arrived.
func (s *Server) Hold(folderID string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[folderID] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns how many requests reached path (auth failures included).
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// TotalCalls returns the number of requests received on any path.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// SearchQueries returns the queries received by the search endpoint, in order.
func (s *Server) SearchQueries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func (s *Server) count(r *http.Request) (forced int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[r.URL.Path]++
	return s.statuses[r.URL.Path]
}

func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forced := s.count(r)

		header := r.Header.Get("Authorization")
		tok := strings.TrimPrefix(header, "Bearer ")
		s.mu.Lock()
		ok := strings.HasPrefix(header, "Bearer ") && s.tokens[tok]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
			return
		}
		if forced != 0 {
			writeJSON(w, forced, map[string]string{"error": http.StatusText(forced)})
			return
		}
		h(w, r)
	}
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	var req models.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.Username != Username || req.Password != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Bad username or password or both"})
		return
	}
	writeJSON(w, http.StatusOK, models.AuthResponse{Token: s.IssueToken()})
}

func (s *Server) wait(folderID string) {
	s.mu.Lock()
	ch := s.gates[folderID]
	s.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	files := append([]models.FileEntry(nil), s.root...)
	s.mu.Unlock()
	s.wait(models.RootID)
	writeJSON(w, http.StatusOK, models.ListingResponse{Files: files})
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	s.mu.Lock()
	files, ok := s.children[id]
	files = append([]models.FileEntry(nil), files...)
	s.mu.Unlock()
	s.wait(id)
	if !ok {
		writeJSON(w, http.StatusBadRequest, "Bad uuid")
		return
	}
	writeJSON(w, http.StatusOK, models.ListingResponse{Files: files})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.PathValue("query")
	s.mu.Lock()
	s.queries = append(s.queries, q)
	var hits []models.FileEntry
	for _, list := range s.children {
		for _, f := range list {
			if strings.Contains(f.Name, q) {
				hits = append(hits, f)
			}
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.ListingResponse{Files: hits})
}

func (s *Server) find(id string) (models.FileEntry, bool) {
	for _, list := range s.children {
		for _, f := range list {
			if f.ID == id {
				return f, true
			}
		}
	}
	return models.FileEntry{}, false
}

func (s *Server) handleCreateOTL(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expires, err := strconv.ParseInt(q.Get("expires"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, "Bad Expire")
		return
	}
	maxDownloads, err := strconv.Atoi(q.Get("maxdownloads"))
	if err != nil || maxDownloads <= 0 {
		writeJSON(w, http.StatusBadRequest, "Bad Downloads")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.find(q.Get("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, "File Not Found")
		return
	}
	tok := strings.ReplaceAll(uuid.NewString()+uuid.NewString()+uuid.NewString(), "-", "")
	s.otls[tok] = &otlRecord{
		fileID:    f.ID,
		expiresAt: time.Now().Add(time.Duration(expires) * time.Second),
		remaining: maxDownloads,
	}
	writeJSON(w, http.StatusOK, map[string]string{"Token": tok})
}

func (s *Server) serveFile(w http.ResponseWriter, f models.FileEntry) {
	s.mu.Lock()
	data := s.content[f.ID]
	noDispo := s.noDispo
	s.mu.Unlock()

	if !noDispo {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	f, ok := s.find(r.URL.Query().Get("id"))
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, "")
		return
	}
	s.serveFile(w, f)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for parent, list := range s.children {
		for i, f := range list {
			if f.ID == id {
				s.children[parent] = append(list[:i:i], list[i+1:]...)
				delete(s.children, id)
				writeJSON(w, http.StatusOK, map[string]string{"message": "File deleted successfully"})
				return
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "File not found"})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	tok := r.URL.Query().Get("id")

	s.mu.Lock()
	rec, ok := s.otls[tok]
	valid := ok && time.Now().Before(rec.expiresAt) && rec.remaining > 0
	var f models.FileEntry
	if valid {
		rec.remaining--
		f, valid = s.find(rec.fileID)
	}
	s.mu.Unlock()

	if !valid {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "OTL not found"})
		return
	}
	s.serveFile(w, f)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
