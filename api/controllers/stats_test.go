package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/db/models"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/enums"
)

type testStatsService struct {
	rollupFn func(ctx context.Context, tenantID uuid.UUID, platform enums.Platform, day time.Time) (models.DailyStat, error)
	listFn   func(ctx context.Context, tenantID uuid.UUID, platform *enums.Platform, from, to time.Time) ([]models.DailyStat, error)
}

func (s *testStatsService) Rollup(ctx context.Context, tenantID uuid.UUID, platform enums.Platform, day time.Time) (models.DailyStat, error) {
	if s.rollupFn != nil {
		return s.rollupFn(ctx, tenantID, platform, day)
	}
	return models.DailyStat{}, nil
}

func (s *testStatsService) RollupDay(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (s *testStatsService) List(ctx context.Context, tenantID uuid.UUID, platform *enums.Platform, from, to time.Time) ([]models.DailyStat, error) {
	if s.listFn != nil {
		return s.listFn(ctx, tenantID, platform, from, to)
	}
	return nil, nil
}

func TestTriggerRollup(t *testing.T) {
	tenantID := uuid.New()
	svc := &testStatsService{
		rollupFn: func(_ context.Context, tid uuid.UUID, platform enums.Platform, day time.Time) (models.DailyStat, error) {
			if tid != tenantID {
				t.Fatalf("unexpected tenant %s", tid)
			}
			if platform != enums.PlatformMeta {
				t.Fatalf("unexpected platform %s", platform)
			}
			want := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
			if !day.Equal(want) {
				t.Fatalf("unexpected day %s", day)
			}
			return models.DailyStat{TenantID: tid, Platform: platform, TotalCount: 12}, nil
		},
	}

	body := `{"tenant_id": "` + tenantID.String() + `", "platform": "meta", "date": "2025-12-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stats/rollup", strings.NewReader(body))
	resp := httptest.NewRecorder()

	TriggerRollup(svc, testLogg())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data models.DailyStat `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.TotalCount != 12 {
		t.Fatalf("unexpected total count %d", envelope.Data.TotalCount)
	}
}

func TestTriggerRollupRejectsBadDate(t *testing.T) {
	body := `{"tenant_id": "` + uuid.NewString() + `", "platform": "meta", "date": "12/01/2025"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stats/rollup", strings.NewReader(body))
	resp := httptest.NewRecorder()

	TriggerRollup(&testStatsService{}, testLogg())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestListStatsParsesRange(t *testing.T) {
	tenantID := uuid.New()
	svc := &testStatsService{
		listFn: func(_ context.Context, tid uuid.UUID, platform *enums.Platform, from, to time.Time) ([]models.DailyStat, error) {
			if tid != tenantID {
				t.Fatalf("unexpected tenant %s", tid)
			}
			if platform != nil {
				t.Fatalf("expected no platform filter, got %v", *platform)
			}
			if from.Format("2006-01-02") != "2025-12-01" || to.Format("2006-01-02") != "2025-12-07" {
				t.Fatalf("unexpected range %s..%s", from, to)
			}
			return []models.DailyStat{{TenantID: tid}}, nil
		},
	}

	target := "/api/v1/stats?tenant_id=" + tenantID.String() + "&from=2025-12-01&to=2025-12-07"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()

	ListStats(svc, testLogg())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestListStatsRejectsInvertedRange(t *testing.T) {
	target := "/api/v1/stats?tenant_id=" + uuid.NewString() + "&from=2025-12-07&to=2025-12-01"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()

	ListStats(&testStatsService{}, testLogg())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
