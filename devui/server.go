package devui

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
)

// Server exposes a Session over HTTP.
type Server struct {
	session *Session
	mux     *http.ServeMux
}

func NewServer(session *Session) (*Server, error) {
	if session == nil {
		return nil, fmt.Errorf("devui: nil session")
	}
	s := &Server{session: session, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /", s.handleDashboard)
	s.mux.HandleFunc("GET /api/workflows", s.handleWorkflows)
	s.mux.HandleFunc("POST /api/test", s.handleTest)
	s.mux.HandleFunc("GET /api/prompt/{workflow}/{step}", s.handleGetPrompt)
	s.mux.HandleFunc("POST /api/prompt/{workflow}/{step}", s.handleUpdatePrompt)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("POST /api/clear-history", s.handleClearHistory)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

var dashboardPage = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>Workflow Tester</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 40px; background: #f5f5f5; }
		.container { max-width: 900px; margin: 0 auto; background: white; padding: 30px; border-radius: 10px; }
		textarea { width: 100%; height: 120px; }
		select, button { padding: 8px 16px; margin: 8px 0; }
		pre { background: #f8f9fa; padding: 15px; overflow-x: auto; }
	</style>
</head>
<body>
	<div class="container">
		<h1>Workflow Tester</h1>
		<select id="workflow">
		{{range .Workflows}}<option value="{{.}}">{{.}}</option>{{end}}
		</select>
		<textarea id="input" placeholder="Paste a transcription to test..."></textarea>
		<button onclick="runTest()">Run</button>
		<pre id="result"></pre>
	</div>
	<script>
	async function runTest() {
		const body = {
			workflow: document.getElementById('workflow').value,
			input: document.getElementById('input').value
		};
		const resp = await fetch('/api/test', {
			method: 'POST',
			headers: {'Content-Type': 'application/json'},
			body: JSON.stringify(body)
		});
		document.getElementById('result').textContent = JSON.stringify(await resp.json(), null, 2);
	}
	</script>
</body>
</html>
`))

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = dashboardPage.Execute(w, map[string]any{"Workflows": s.session.Workflows()})
}

func (s *Server) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	names := s.session.Workflows()
	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		steps, err := s.session.Steps(name)
		if err != nil {
			continue
		}
		out = append(out, map[string]any{"name": name, "steps": steps})
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflows": out})
}

type testRequest struct {
	Workflow string `json:"workflow"`
	Input    string `json:"input"`
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeError(w, http.StatusBadRequest, "input text is required")
		return
	}
	if req.Workflow == "" {
		writeError(w, http.StatusBadRequest, "workflow is required")
		return
	}

	result, err := s.session.Test(r.Context(), req.Workflow, req.Input)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	prompt, err := s.session.Prompt(r.PathValue("workflow"), r.PathValue("step"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompt": prompt})
}

type promptUpdate struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.session.UpdatePrompt(r.PathValue("workflow"), r.PathValue("step"), req.Prompt); err != nil {
		status := http.StatusNotFound
		if strings.Contains(err.Error(), "empty") {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"history": s.session.History()})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.session.ClearHistory()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
