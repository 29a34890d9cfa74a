package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/costlens/internal/datewindow"
	enginedomain "github.com/smallbiznis/costlens/internal/engine/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEngine struct {
	runs map[string]*enginedomain.PipelineRun
	err  error
}

func (f *fakeEngine) Run(ctx context.Context, tenantID snowflake.ID, domain string, window datewindow.Window) (*enginedomain.PipelineRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	run := &enginedomain.PipelineRun{
		ID:          "01J0TESTRUN",
		TenantID:    tenantID,
		Domain:      domain,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		Status:      enginedomain.RunStatusSucceeded,
		RowsWritten: 30,
		StartedAt:   time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeEngine) GetRun(ctx context.Context, runID string) (*enginedomain.PipelineRun, error) {
	run, ok := f.runs[runID]
	if !ok {
		return nil, enginedomain.ErrRunNotFound
	}
	return run, nil
}

func (f *fakeEngine) ListRuns(ctx context.Context, tenantID snowflake.ID, limit int) ([]*enginedomain.PipelineRun, error) {
	var out []*enginedomain.PipelineRun
	for _, run := range f.runs {
		if run.TenantID == tenantID {
			out = append(out, run)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T, engine enginedomain.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := NewEngine()
	s := NewServer(Params{Gin: r, Log: zap.NewNop(), EngineSvc: engine})
	registerRoutes(s)
	return r
}

func TestCreateRunReturnsRun(t *testing.T) {
	node, _ := snowflake.NewNode(1)
	tenantID := node.Generate()
	engine := &fakeEngine{runs: map[string]*enginedomain.PipelineRun{}}
	r := newTestServer(t, engine)

	body := fmt.Sprintf(`{"tenant_id":%q,"domain":"subscriptions","start":"2024-06-01","end":"2024-06-30"}`, tenantID.String())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp runResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "01J0TESTRUN", resp.ID)
	assert.Equal(t, "succeeded", resp.Status)
	assert.Equal(t, int64(30), resp.RowsWritten)
}

func TestCreateRunRejectsUnknownDomain(t *testing.T) {
	node, _ := snowflake.NewNode(1)
	engine := &fakeEngine{
		runs: map[string]*enginedomain.PipelineRun{},
		err:  fmt.Errorf("%w: payroll", enginedomain.ErrUnknownDomain),
	}
	r := newTestServer(t, engine)

	body := fmt.Sprintf(`{"tenant_id":%q,"domain":"payroll","start":"2024-06-01","end":"2024-06-30"}`, node.Generate().String())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_request")
}

func TestGetRunNotFound(t *testing.T) {
	r := newTestServer(t, &fakeEngine{runs: map[string]*enginedomain.PipelineRun{}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/runs/unknown", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	r := newTestServer(t, &fakeEngine{runs: map[string]*enginedomain.PipelineRun{}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
