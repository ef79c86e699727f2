package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-crm-api/internal/middleware"
	"github.com/noah-isme/school-crm-api/internal/models"
	"github.com/noah-isme/school-crm-api/internal/service"
)

// Handlers aggregates every endpoint group for route registration.
type Handlers struct {
	Auth       *AuthHandler
	Class      *ClassHandler
	Subject    *SubjectHandler
	Bell       *BellHandler
	Student    *StudentHandler
	Schedule   *ScheduleHandler
	Attendance *AttendanceHandler
	Grade      *GradeHandler
	Report     *ReportHandler
}

// RegisterRoutes mounts the API under the given prefix. Admins manage the
// directory and timetable; teachers mark attendance and grades and pull
// reports; any authenticated user can read the directory.
func RegisterRoutes(r *gin.Engine, prefix string, authService *service.AuthService, h Handlers) {
	api := r.Group(prefix)

	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(authService))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.GET("/auth/users", adminOnly, h.Auth.ListUsers)
	secured.PUT("/auth/users/:id", adminOnly, h.Auth.UpdateUser)

	secured.GET("/classes", h.Class.List)
	secured.POST("/classes", adminOnly, h.Class.Create)
	secured.DELETE("/classes/:id", adminOnly, h.Class.Delete)

	secured.GET("/subjects", h.Subject.List)
	secured.POST("/subjects", adminOnly, h.Subject.Create)

	secured.GET("/bells", h.Bell.List)
	secured.POST("/bells", adminOnly, h.Bell.Create)
	secured.DELETE("/bells/:id", adminOnly, h.Bell.Delete)

	secured.GET("/students", h.Student.List)
	secured.POST("/students", adminOnly, h.Student.Create)
	secured.POST("/students/upload", adminOnly, h.Student.Upload)
	secured.PUT("/students/:id/transfer", adminOnly, h.Student.Transfer)

	secured.GET("/schedule", h.Schedule.List)
	secured.POST("/schedule", adminOnly, h.Schedule.Create)
	secured.DELETE("/schedule/:id", adminOnly, h.Schedule.Delete)

	secured.POST("/attendance", staff, h.Attendance.Mark)
	secured.GET("/attendance", staff, h.Attendance.List)

	secured.POST("/grades", staff, h.Grade.Upsert)
	secured.POST("/grades/final", staff, h.Grade.UpsertFinal)
	secured.GET("/grades/matrix", staff, h.Grade.Matrix)

	secured.GET("/reports/view", staff, h.Report.View)
	secured.GET("/reports/export", staff, h.Report.Export)
}
