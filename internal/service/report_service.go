package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-crm-api/internal/models"
	appErrors "github.com/noah-isme/school-crm-api/pkg/errors"
	"github.com/noah-isme/school-crm-api/pkg/export"
)

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheMetrics interface {
	RecordCacheLookup(hit bool)
}

type gradeStatsReader interface {
	RangeStats(ctx context.Context, classGroupID string, startDate, endDate time.Time) ([]models.GradeRangeStats, error)
}

type attendanceStatsReader interface {
	RangeCounts(ctx context.Context, classGroupID string, startDate, endDate time.Time) ([]models.AttendanceRangeCounts, error)
}

// ReportRequest selects a class, report type and inclusive date range.
type ReportRequest struct {
	ClassGroupID string `json:"class_group_id" form:"class_group_id" validate:"required"`
	Type         string `json:"report_type" form:"report_type" validate:"required,report_type"`
	StartDate    string `json:"start_date" form:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string `json:"end_date" form:"end_date" validate:"required,datetime=2006-01-02"`
}

// ExportResult is a rendered report file ready to stream to the client.
type ExportResult struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ReportService builds per-class summaries and renders them as files.
type ReportService struct {
	classes    classGroupReader
	students   studentLister
	grades     gradeStatsReader
	attendance attendanceStatsReader
	cache      reportCache
	cacheTTL   time.Duration
	metrics    cacheMetrics
	excel      *export.ExcelExporter
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewReportService instantiates ReportService. A nil cache disables report
// caching; a nil metrics recorder disables cache hit/miss counting.
func NewReportService(classes classGroupReader, students studentLister, grades gradeStatsReader, attendance attendanceStatsReader, cache reportCache, cacheTTL time.Duration, metrics cacheMetrics, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ReportService{
		classes:    classes,
		students:   students,
		grades:     grades,
		attendance: attendance,
		cache:      cache,
		cacheTTL:   cacheTTL,
		metrics:    metrics,
		excel:      export.NewExcelExporter(),
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		validator:  validate,
		logger:     logger,
	}
	svc.validator.RegisterValidation("report_type", func(fl validator.FieldLevel) bool {
		return models.ReportType(fl.Field().String()).Valid()
	})
	return svc
}

// View builds the report for a class over an inclusive date range. Results
// are cached per (class, type, range).
func (s *ReportService) View(ctx context.Context, req ReportRequest) (*models.ClassReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request")
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end date")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	cacheKey := fmt.Sprintf("report:%s:%s:%s:%s", req.ClassGroupID, req.Type, req.StartDate, req.EndDate)
	if s.cache != nil {
		var cached models.ClassReport
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.recordCacheLookup(true)
			return &cached, nil
		} else if appErrors.HasCode(err, appErrors.ErrCacheMiss) {
			s.recordCacheLookup(false)
		} else {
			s.logger.Warn("report cache read failed", zap.Error(err))
		}
	}

	report, err := s.build(ctx, req.ClassGroupID, models.ReportType(req.Type), start, end)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.Error(err))
		}
	}
	return report, nil
}

// Export renders the report as a downloadable file. Supported formats are
// xlsx (default), csv and pdf.
func (s *ReportService) Export(ctx context.Context, req ReportRequest, format string) (*ExportResult, error) {
	report, err := s.View(ctx, req)
	if err != nil {
		return nil, err
	}

	dataset, title, subtitle := s.dataset(report)
	if format == "" {
		format = "xlsx"
	}

	base := fmt.Sprintf("Report_%s_%s_%s", report.ClassGroupName, report.Type, req.StartDate)
	switch format {
	case "xlsx":
		content, err := s.excel.Render(dataset, title, subtitle)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render xlsx report")
		}
		return &ExportResult{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     content,
		}, nil
	case "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &ExportResult{Filename: base + ".csv", ContentType: "text/csv", Content: content}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &ExportResult{Filename: base + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *ReportService) recordCacheLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(hit)
	}
}

func (s *ReportService) build(ctx context.Context, classGroupID string, reportType models.ReportType, start, end time.Time) (*models.ClassReport, error) {
	class, err := s.classes.FindByID(ctx, classGroupID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class group")
	}

	students, err := s.students.List(ctx, models.StudentFilter{ClassGroupID: classGroupID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	report := &models.ClassReport{
		ClassGroupID:   class.ID,
		ClassGroupName: class.Name,
		Type:           reportType,
		StartDate:      start,
		EndDate:        end,
	}

	switch reportType {
	case models.ReportGrades:
		stats, err := s.grades.RangeStats(ctx, classGroupID, start, end)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate grades")
		}
		byStudent := make(map[string]models.GradeRangeStats, len(stats))
		for _, st := range stats {
			byStudent[st.StudentID] = st
		}
		for _, student := range students {
			stat := byStudent[student.ID]
			report.Grades = append(report.Grades, models.GradeReportRow{
				StudentID: student.ID,
				FullName:  student.FullName,
				Average:   stat.Average,
				Count:     stat.Count,
			})
		}
	case models.ReportAttendance:
		counts, err := s.attendance.RangeCounts(ctx, classGroupID, start, end)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
		}
		byStudent := make(map[string]models.AttendanceRangeCounts, len(counts))
		for _, c := range counts {
			byStudent[c.StudentID] = c
		}
		for _, student := range students {
			count := byStudent[student.ID]
			report.Attendance = append(report.Attendance, models.AttendanceReportRow{
				StudentID: student.ID,
				FullName:  student.FullName,
				Absent:    count.Absent,
				Late:      count.Late,
			})
		}
	}

	return report, nil
}

func (s *ReportService) dataset(report *models.ClassReport) (export.Dataset, string, string) {
	subtitle := fmt.Sprintf("Period: %s - %s",
		report.StartDate.Format("2006-01-02"), report.EndDate.Format("2006-01-02"))

	if report.Type == models.ReportGrades {
		data := export.Dataset{Headers: []string{"#", "Student", "Average", "Grades"}}
		for i, row := range report.Grades {
			data.Rows = append(data.Rows, map[string]string{
				"#":       strconv.Itoa(i + 1),
				"Student": row.FullName,
				"Average": strconv.FormatFloat(row.Average, 'f', 2, 64),
				"Grades":  strconv.Itoa(row.Count),
			})
		}
		return data, fmt.Sprintf("Grade report | Class %s", report.ClassGroupName), subtitle
	}

	data := export.Dataset{Headers: []string{"#", "Student", "Absent", "Late"}}
	for i, row := range report.Attendance {
		data.Rows = append(data.Rows, map[string]string{
			"#":       strconv.Itoa(i + 1),
			"Student": row.FullName,
			"Absent":  strconv.Itoa(row.Absent),
			"Late":    strconv.Itoa(row.Late),
		})
	}
	return data, fmt.Sprintf("Attendance report | Class %s", report.ClassGroupName), subtitle
}
