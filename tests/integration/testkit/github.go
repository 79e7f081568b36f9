package testkit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// GitHubURLProperty is the TestEnv property holding the fake API base URL
const GitHubURLProperty = "github.url"

// Repo is a repository served by FakeGitHub.
type Repo struct {
	ID          int64
	FullName    string
	Description string
	Language    string
	Stars       int
	CreatedAt   time.Time
	PushedAt    time.Time
	Topics      []string
	Archived    bool
	Readme      string
}

var (
	starRangePattern = regexp.MustCompile(`stars:(\d+)\.\.(\d+)`)
	starMinPattern   = regexp.MustCompile(`stars:>=(\d+)`)
	languagePattern  = regexp.MustCompile(`language:("[^"]+"|\S+)`)
)

// FakeGitHub is an in-process GitHub API serving repository search, starred
// lists and READMEs from a fixed set of repositories. It implements Service.
type FakeGitHub struct {
	mu      sync.Mutex
	repos   []Repo
	starred map[string][]int64
	failing map[string]bool
	queries []string
	server  *httptest.Server
}

// NewFakeGitHub creates a fake API serving repos.
func NewFakeGitHub(repos ...Repo) *FakeGitHub {
	return &FakeGitHub{
		repos:   repos,
		starred: make(map[string][]int64),
		failing: make(map[string]bool),
	}
}

// Star records that user starred the repositories with the given ids.
func (g *FakeGitHub) Star(user string, ids ...int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.starred[user] = append(g.starred[user], ids...)
}

// FailQuery makes searches whose query starts with prefix answer 503.
func (g *FakeGitHub) FailQuery(prefix string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failing[prefix] = true
}

// Queries returns the search queries received so far.
func (g *FakeGitHub) Queries() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.queries)
}

// URL returns the API base URL. Valid after Start.
func (g *FakeGitHub) URL() string {
	return g.server.URL
}

// Start implements Service.
func (g *FakeGitHub) Start() (map[string]any, error) {
	r := chi.NewRouter()
	r.Get("/search/repositories", g.search)
	r.Get("/users/{user}/starred", g.userStarred)
	r.Get("/repos/{owner}/{name}/readme", g.readme)
	g.server = httptest.NewServer(r)
	return map[string]any{GitHubURLProperty: g.server.URL}, nil
}

// Stop implements Service.
func (g *FakeGitHub) Stop() error {
	if g.server != nil {
		g.server.Close()
	}
	return nil
}

// GetName implements Service.
func (g *FakeGitHub) GetName() string {
	return "fake-github"
}

func (g *FakeGitHub) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	g.mu.Lock()
	g.queries = append(g.queries, q)
	for prefix := range g.failing {
		if strings.HasPrefix(q, prefix) {
			g.mu.Unlock()
			writeError(w, http.StatusServiceUnavailable, "Service Unavailable")
			return
		}
	}
	var matched []Repo
	for _, repo := range g.repos {
		if matchesQuery(repo, q) {
			matched = append(matched, repo)
		}
	}
	g.mu.Unlock()

	slices.SortStableFunc(matched, func(a, b Repo) int { return b.Stars - a.Stars })

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 {
		perPage = 30
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	start := min((page-1)*perPage, len(matched))
	end := min(start+perPage, len(matched))

	if end < len(matched) {
		next := *r.URL
		values := next.Query()
		values.Set("page", strconv.Itoa(page+1))
		next.RawQuery = values.Encode()
		w.Header().Set("Link", fmt.Sprintf(`<http://%s%s>; rel="next"`, r.Host, next.RequestURI()))
	}

	items := make([]any, 0, end-start)
	for _, repo := range matched[start:end] {
		items = append(items, repoJSON(repo))
	}
	writeJSON(w, map[string]any{
		"total_count":        len(matched),
		"incomplete_results": false,
		"items":              items,
	})
}

func (g *FakeGitHub) userStarred(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	g.mu.Lock()
	ids, ok := g.starred[user]
	items := []any{}
	for _, id := range ids {
		for _, repo := range g.repos {
			if repo.ID == id {
				items = append(items, map[string]any{
					"starred_at": "2025-01-01T00:00:00Z",
					"repo":       repoJSON(repo),
				})
			}
		}
	}
	g.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, items)
}

func (g *FakeGitHub) readme(w http.ResponseWriter, r *http.Request) {
	fullName := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, repo := range g.repos {
		if strings.EqualFold(repo.FullName, fullName) && repo.Readme != "" {
			writeJSON(w, map[string]any{
				"type":     "file",
				"name":     "README.md",
				"encoding": "base64",
				"content":  base64.StdEncoding.EncodeToString([]byte(repo.Readme)),
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Not Found")
}

// matchesQuery evaluates the star, archived, language and free-text parts of
// a search query.
func matchesQuery(repo Repo, q string) bool {
	if m := starRangePattern.FindStringSubmatch(q); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if repo.Stars < lo || repo.Stars > hi {
			return false
		}
	} else if m := starMinPattern.FindStringSubmatch(q); m != nil {
		lo, _ := strconv.Atoi(m[1])
		if repo.Stars < lo {
			return false
		}
	}

	if strings.Contains(q, "archived:false") && repo.Archived {
		return false
	}

	if langs := languagePattern.FindAllStringSubmatch(q, -1); len(langs) > 0 {
		ok := false
		for _, l := range langs {
			if strings.EqualFold(strings.Trim(l[1], `"`), repo.Language) {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}

	for _, word := range strings.Fields(q) {
		if strings.Contains(word, ":") || strings.HasPrefix(word, `"`) || strings.HasSuffix(word, `"`) {
			continue
		}
		haystack := strings.ToLower(repo.FullName + " " + repo.Description + " " + strings.Join(repo.Topics, " "))
		if !strings.Contains(haystack, strings.ToLower(word)) {
			return false
		}
	}
	return true
}

func repoJSON(repo Repo) map[string]any {
	m := map[string]any{
		"id":               repo.ID,
		"full_name":        repo.FullName,
		"name":             repo.FullName[strings.Index(repo.FullName, "/")+1:],
		"stargazers_count": repo.Stars,
		"created_at":       repo.CreatedAt.UTC().Format(time.RFC3339),
		"pushed_at":        repo.PushedAt.UTC().Format(time.RFC3339),
		"archived":         repo.Archived,
		"topics":           repo.Topics,
		"owner":            map[string]any{"avatar_url": fmt.Sprintf("https://avatars.example/%d", repo.ID)},
	}
	if repo.Description != "" {
		m["description"] = repo.Description
	}
	if repo.Language != "" {
		m["language"] = repo.Language
	}
	return m
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"message": message})
}
