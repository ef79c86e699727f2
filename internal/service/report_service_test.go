package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-crm-api/internal/models"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
)

type mockReportCache struct {
	entries map[string][]byte
	hits    int
	misses  int
}

func (m *mockReportCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		m.misses++
		return appErrors.Clone(appErrors.ErrCacheMiss, "cache miss")
	}
	m.hits++
	return json.Unmarshal(raw, dest)
}

func (m *mockReportCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

type mockGradeStats struct {
	stats []models.GradeRangeStats
	calls int
}

func (m *mockGradeStats) RangeStats(ctx context.Context, classGroupID string, startDate, endDate time.Time) ([]models.GradeRangeStats, error) {
	m.calls++
	return m.stats, nil
}

type mockAttendanceStats struct {
	counts []models.AttendanceRangeCounts
}

func (m *mockAttendanceStats) RangeCounts(ctx context.Context, classGroupID string, startDate, endDate time.Time) ([]models.AttendanceRangeCounts, error) {
	return m.counts, nil
}

type mockCacheMetrics struct {
	hits   int
	misses int
}

func (m *mockCacheMetrics) RecordCacheLookup(hit bool) {
	if hit {
		m.hits++
		return
	}
	m.misses++
}

func newReportFixture(cache *mockReportCache, grades *mockGradeStats, metrics *mockCacheMetrics) *ReportService {
	classes := &mockClassDir{classes: map[string]*models.ClassGroup{
		"class-9b": {ID: "class-9b", Name: "9-B"},
	}}
	students := &mockStudentRoster{students: []models.Student{
		{ID: "student-1", FullName: "Anna K", ClassGroupID: "class-9b"},
		{ID: "student-2", FullName: "Boris L", ClassGroupID: "class-9b"},
	}}
	attendance := &mockAttendanceStats{counts: []models.AttendanceRangeCounts{
		{StudentID: "student-1", Absent: 2, Late: 1},
	}}
	var rc reportCache
	if cache != nil {
		rc = cache
	}
	var cm cacheMetrics
	if metrics != nil {
		cm = metrics
	}
	return NewReportService(classes, students, grades, attendance, rc, 5*time.Minute, cm, nil, nil)
}

func gradesRequest() ReportRequest {
	return ReportRequest{
		ClassGroupID: "class-9b",
		Type:         "grades",
		StartDate:    "2026-01-01",
		EndDate:      "2026-01-31",
	}
}

func TestReportViewGrades(t *testing.T) {
	grades := &mockGradeStats{stats: []models.GradeRangeStats{
		{StudentID: "student-1", Average: 4.5, Count: 12},
	}}
	svc := newReportFixture(nil, grades, nil)

	report, err := svc.View(context.Background(), gradesRequest())
	require.NoError(t, err)
	assert.Equal(t, "9-B", report.ClassGroupName)
	require.Len(t, report.Grades, 2)

	// Rows follow the roster; students without grades get zero values.
	assert.Equal(t, 4.5, report.Grades[0].Average)
	assert.Equal(t, 12, report.Grades[0].Count)
	assert.Equal(t, 0.0, report.Grades[1].Average)
	assert.Equal(t, 0, report.Grades[1].Count)
}

func TestReportViewAttendance(t *testing.T) {
	svc := newReportFixture(nil, &mockGradeStats{}, nil)

	req := gradesRequest()
	req.Type = "attendance"
	report, err := svc.View(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, report.Attendance, 2)
	assert.Equal(t, 2, report.Attendance[0].Absent)
	assert.Equal(t, 1, report.Attendance[0].Late)
	assert.Empty(t, report.Grades)
}

func TestReportViewCachesResult(t *testing.T) {
	cache := &mockReportCache{}
	grades := &mockGradeStats{stats: []models.GradeRangeStats{
		{StudentID: "student-1", Average: 4.0, Count: 3},
	}}
	svc := newReportFixture(cache, grades, nil)

	first, err := svc.View(context.Background(), gradesRequest())
	require.NoError(t, err)
	second, err := svc.View(context.Background(), gradesRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, grades.calls)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, 1, cache.misses)
	assert.Equal(t, first.Grades, second.Grades)
}

func TestReportViewRecordsCacheMetrics(t *testing.T) {
	cache := &mockReportCache{}
	metrics := &mockCacheMetrics{}
	grades := &mockGradeStats{stats: []models.GradeRangeStats{
		{StudentID: "student-1", Average: 4.0, Count: 3},
	}}
	svc := newReportFixture(cache, grades, metrics)

	_, err := svc.View(context.Background(), gradesRequest())
	require.NoError(t, err)
	_, err = svc.View(context.Background(), gradesRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, metrics.hits)
}

func TestReportViewValidation(t *testing.T) {
	svc := newReportFixture(nil, &mockGradeStats{}, nil)

	req := gradesRequest()
	req.Type = "payroll"
	_, err := svc.View(context.Background(), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	req = gradesRequest()
	req.StartDate = "2026-02-01"
	req.EndDate = "2026-01-01"
	_, err = svc.View(context.Background(), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestReportViewUnknownClass(t *testing.T) {
	svc := newReportFixture(nil, &mockGradeStats{}, nil)

	req := gradesRequest()
	req.ClassGroupID = "class-ghost"
	_, err := svc.View(context.Background(), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestReportExportFormats(t *testing.T) {
	grades := &mockGradeStats{stats: []models.GradeRangeStats{
		{StudentID: "student-1", Average: 4.5, Count: 12},
	}}
	svc := newReportFixture(nil, grades, nil)

	cases := []struct {
		format      string
		filename    string
		contentType string
	}{
		{"", "Report_9-B_grades_2026-01-01.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"csv", "Report_9-B_grades_2026-01-01.csv", "text/csv"},
		{"pdf", "Report_9-B_grades_2026-01-01.pdf", "application/pdf"},
	}
	for _, tc := range cases {
		result, err := svc.Export(context.Background(), gradesRequest(), tc.format)
		require.NoError(t, err)
		assert.Equal(t, tc.filename, result.Filename)
		assert.Equal(t, tc.contentType, result.ContentType)
		assert.NotEmpty(t, result.Content)
	}

	_, err := svc.Export(context.Background(), gradesRequest(), "docx")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
