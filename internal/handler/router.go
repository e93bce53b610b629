package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/middleware"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/repository"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/service"
)

// Handlers bundles the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Auth          *AuthHandler
	Tenants       *TenantHandler
	AcademicYears *AcademicYearHandler
	Users         *UserHandler
	Questions     *QuestionHandler
	Frameworks    *FrameworkHandler
	Blueprints    *BlueprintHandler
	Papers        *PaperHandler
	Attempts      *AttemptHandler
	Exports       *ExportHandler
	References    *ReferenceHandler
	Notifications *NotificationHandler
	Dashboards    *DashboardHandler
	Metrics       *MetricsHandler
}

// RouterDeps carries the cross-cutting services route middleware needs.
type RouterDeps struct {
	APIPrefix string
	Auth      *service.AuthService
	Metrics   *service.MetricsService
	AuditRepo *repository.UserRepository
}

// Role sets shared across routes. Routes gate on role only; services enforce
// tenant scoping and ownership on top.
var (
	staffRoles = []models.UserRole{
		models.RoleTeacher, models.RoleHOD, models.RolePrincipal,
		models.RoleExamCommittee, models.RoleAdmin, models.RoleSuperAdmin,
	}
	adminRoles  = []models.UserRole{models.RoleAdmin, models.RoleSuperAdmin}
	authorRoles = []models.UserRole{
		models.RoleTeacher, models.RoleHOD, models.RoleAdmin, models.RoleSuperAdmin,
	}
	frameworkRoles = []models.UserRole{
		models.RoleAdmin, models.RolePrincipal, models.RoleExamCommittee, models.RoleSuperAdmin,
	}
	printerRoles = []models.UserRole{
		models.RoleExamCommittee, models.RoleAdmin, models.RoleSuperAdmin,
	}
)

// RegisterRoutes mounts the versioned API under deps.APIPrefix. Login and
// refresh stay outside the JWT group; every other route requires a bearer
// token and, where listed, one of the named roles.
func RegisterRoutes(r *gin.Engine, h Handlers, deps RouterDeps) {
	requireRoles := middleware.RequireRoles
	audit := func(action, resource string) gin.HandlerFunc {
		if deps.AuditRepo == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.Audit(deps.AuditRepo, action, resource)
	}

	api := r.Group(deps.APIPrefix)
	api.Use(middleware.Metrics(deps.Metrics))
	api.Use(middleware.WithResponseMeta())

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	authed := api.Group("", middleware.JWT(deps.Auth))

	authed.POST("/auth/logout", h.Auth.Logout)
	authed.POST("/auth/change-password", h.Auth.ChangePassword)
	authed.GET("/auth/me", h.Auth.Me)

	authed.POST("/tenants", requireRoles(models.RoleSuperAdmin), audit(models.AuditActionTenantCreate, "tenants"), h.Tenants.Create)
	authed.GET("/tenants", requireRoles(models.RoleSuperAdmin), h.Tenants.List)
	authed.GET("/tenants/:id", h.Tenants.Get)
	authed.PUT("/tenants/:id", requireRoles(adminRoles...), audit(models.AuditActionTenantUpdate, "tenants"), h.Tenants.Update)
	authed.GET("/tenants/:id/wings", h.Tenants.ListWings)
	authed.POST("/tenants/:id/wings", requireRoles(adminRoles...), h.Tenants.CreateWing)
	authed.PUT("/tenants/:id/wings/:wingId", requireRoles(adminRoles...), h.Tenants.UpdateWing)
	authed.GET("/tenants/:id/storage-config", requireRoles(adminRoles...), h.Tenants.GetStorageConfig)
	authed.PUT("/tenants/:id/storage-config", requireRoles(adminRoles...), audit(models.AuditActionTenantUpdate, "tenant_storage"), h.Tenants.UpsertStorageConfig)

	authed.POST("/academic-years", requireRoles(adminRoles...), h.AcademicYears.Create)
	authed.GET("/academic-years", h.AcademicYears.List)
	authed.GET("/academic-years/active", h.AcademicYears.GetActive)
	authed.GET("/academic-years/:id", h.AcademicYears.Get)
	authed.PUT("/academic-years/:id", requireRoles(adminRoles...), h.AcademicYears.Update)
	authed.POST("/academic-years/:id/activate", requireRoles(adminRoles...), audit(models.AuditActionYearActivate, "academic_years"), h.AcademicYears.Activate)
	authed.POST("/academic-years/:id/lock", requireRoles(adminRoles...), audit(models.AuditActionYearLock, "academic_years"), h.AcademicYears.Lock)
	authed.POST("/academic-years/:id/unlock", requireRoles(adminRoles...), audit(models.AuditActionYearLock, "academic_years"), h.AcademicYears.Unlock)

	authed.POST("/users", requireRoles(adminRoles...), h.Users.Create)
	authed.GET("/users", requireRoles(staffRoles...), h.Users.List)
	authed.GET("/users/:id", middleware.RBAC(
		string(models.RoleTeacher), string(models.RoleHOD), string(models.RolePrincipal),
		string(models.RoleExamCommittee), string(models.RoleAdmin), string(models.RoleSuperAdmin),
		"SELF",
	), h.Users.Get)
	authed.PUT("/users/:id", requireRoles(adminRoles...), h.Users.Update)
	authed.DELETE("/users/:id", requireRoles(adminRoles...), h.Users.Delete)
	authed.POST("/users/:id/reset-password", requireRoles(adminRoles...), h.Users.ResetPassword)

	authed.POST("/questions", requireRoles(authorRoles...), h.Questions.Create)
	authed.POST("/questions/bulk", requireRoles(authorRoles...), h.Questions.BulkCreate)
	authed.GET("/questions", requireRoles(staffRoles...), h.Questions.List)
	authed.GET("/questions/:id", requireRoles(staffRoles...), h.Questions.Get)
	authed.PUT("/questions/:id", requireRoles(authorRoles...), h.Questions.Update)
	authed.POST("/questions/:id/submit", requireRoles(authorRoles...), h.Questions.Submit)
	authed.POST("/questions/:id/review", requireRoles(models.RoleHOD), h.Questions.Review)
	authed.DELETE("/questions/:id", requireRoles(authorRoles...), h.Questions.Delete)
	authed.GET("/chapters", requireRoles(staffRoles...), h.Questions.ListChapters)
	authed.POST("/chapters", requireRoles(authorRoles...), h.Questions.CreateChapter)

	authed.POST("/frameworks", requireRoles(frameworkRoles...), h.Frameworks.Create)
	authed.GET("/frameworks", h.Frameworks.List)
	authed.GET("/frameworks/:id", h.Frameworks.Get)
	authed.PUT("/frameworks/:id", requireRoles(frameworkRoles...), h.Frameworks.Update)

	authed.POST("/blueprints", requireRoles(authorRoles...), h.Blueprints.Create)
	authed.GET("/blueprints", requireRoles(staffRoles...), h.Blueprints.List)
	authed.GET("/blueprints/:id", requireRoles(staffRoles...), h.Blueprints.Get)
	authed.PUT("/blueprints/:id", requireRoles(authorRoles...), h.Blueprints.Update)
	authed.POST("/blueprints/:id/approve", requireRoles(models.RoleHOD, models.RolePrincipal), h.Blueprints.Approve)
	authed.POST("/blueprints/:id/lock", requireRoles(models.RoleSuperAdmin), h.Blueprints.Lock)
	authed.POST("/blueprints/:id/unlock", requireRoles(models.RoleSuperAdmin), h.Blueprints.Unlock)
	authed.GET("/admin/blueprint-policies", requireRoles(adminRoles...), h.Blueprints.GetPolicy)
	authed.POST("/admin/blueprint-policies", requireRoles(adminRoles...), audit(models.AuditActionPolicyUpsert, "blueprint_policies"), h.Blueprints.UpsertPolicy)

	authed.POST("/papers", requireRoles(models.RoleTeacher, models.RoleHOD), h.Papers.Create)
	authed.GET("/papers", requireRoles(staffRoles...), h.Papers.List)
	authed.GET("/papers/:id", h.Papers.Get)
	authed.PUT("/papers/:id", requireRoles(authorRoles...), h.Papers.Update)
	authed.POST("/papers/:id/submit", requireRoles(models.RoleTeacher, models.RoleHOD), h.Papers.Submit)
	authed.POST("/papers/:id/review", requireRoles(models.RoleHOD, models.RolePrincipal), h.Papers.Review)
	authed.POST("/papers/:id/advance", requireRoles(models.RoleHOD), h.Papers.Advance)
	authed.POST("/papers/:id/send-to-committee", requireRoles(models.RolePrincipal), h.Papers.SendToCommittee)
	authed.POST("/papers/:id/activate", requireRoles(models.RoleExamCommittee), h.Papers.Activate)
	authed.POST("/papers/:id/lock", requireRoles(models.RoleExamCommittee, models.RoleAdmin), h.Papers.Lock)
	authed.POST("/papers/:id/archive", requireRoles(adminRoles...), h.Papers.Archive)
	authed.POST("/papers/:id/resubmit", requireRoles(models.RoleTeacher, models.RoleHOD), h.Papers.Resubmit)
	authed.POST("/papers/:id/reveal-results", requireRoles(models.RoleExamCommittee, models.RoleAdmin), h.Papers.RevealResults)
	authed.GET("/papers/:id/audit", requireRoles(staffRoles...), h.Papers.Audit)
	authed.POST("/papers/:id/export", requireRoles(staffRoles...), h.Exports.ExportResults)
	authed.POST("/papers/:id/generate", requireRoles(printerRoles...), h.Exports.GeneratePaper)
	authed.GET("/papers/:id/download-token", requireRoles(printerRoles...), h.Exports.PaperDownloadToken)
	authed.GET("/papers/:id/download", h.Exports.Download)

	authed.POST("/attempts", requireRoles(models.RoleStudent), h.Attempts.Start)
	authed.GET("/attempts", h.Attempts.List)
	authed.GET("/attempts/:id", h.Attempts.Get)
	authed.PUT("/attempts/:id/progress", requireRoles(models.RoleStudent), h.Attempts.SaveProgress)
	authed.POST("/attempts/:id/submit", requireRoles(models.RoleStudent), h.Attempts.Submit)
	authed.POST("/attempts/:id/override", requireRoles(authorRoles...), h.Attempts.Override)

	authed.POST("/reference-materials", requireRoles(staffRoles...), h.References.Upload)
	authed.GET("/reference-materials", h.References.List)
	authed.GET("/reference-materials/:id", h.References.Get)
	authed.GET("/reference-materials/:id/download", h.References.Download)
	authed.DELETE("/reference-materials/:id", requireRoles(staffRoles...), h.References.Delete)

	authed.GET("/notifications", h.Notifications.List)
	authed.POST("/notifications/:id/read", h.Notifications.MarkRead)

	authed.GET("/dashboard/principal", requireRoles(models.RolePrincipal, models.RoleAdmin, models.RoleSuperAdmin), h.Dashboards.Principal)
	authed.GET("/dashboard/principal/grade-performance", requireRoles(models.RolePrincipal, models.RoleAdmin, models.RoleSuperAdmin), h.Dashboards.GradePerformance)
	authed.GET("/dashboard/principal/at-risk-students", requireRoles(models.RolePrincipal, models.RoleAdmin, models.RoleSuperAdmin), h.Dashboards.AtRiskStudents)
	authed.GET("/dashboard/hod", requireRoles(models.RoleHOD, models.RoleAdmin, models.RoleSuperAdmin), h.Dashboards.HOD)

	authed.GET("/system/metrics", requireRoles(adminRoles...), h.Metrics.Snapshot)
}
