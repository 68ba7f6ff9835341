package app

import (
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.GetProfile)

		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	student := group.Group("/student")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.GET("/quizzes", c.studentQuiz.ListAvailableQuizzes)
		student.GET("/quizzes/:id/questions", c.studentQuiz.StartQuiz)
		student.POST("/quizzes/:id/answer", c.studentQuiz.RecordAnswer)
		student.GET("/quizzes/:id/session", c.studentQuiz.SessionStatus)
		student.DELETE("/quizzes/:id/session", c.studentQuiz.CancelSession)
		student.POST("/quizzes/:id/submit", c.studentQuiz.SubmitQuiz)
		student.GET("/quiz-results/:attemptId", c.studentQuiz.GetResult)

		student.GET("/assignments", c.assignment.ListStudentAssignments)
		student.POST("/assignments/:id/submit", c.assignment.SubmitAssignment)
		student.POST("/assignments/:id/check-and-grade", c.assignment.CheckAndGrade)
		student.GET("/submissions", c.assignment.ListStudentSubmissions)
	}
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/quizzes", c.quiz.CreateQuiz)
		teacher.GET("/quizzes", c.quiz.ListQuizzes)
		teacher.GET("/quizzes/:id", c.quiz.GetQuiz)
		teacher.DELETE("/quizzes/:id", c.quiz.DeleteQuiz)

		teacher.POST("/assignments", c.assignment.CreateAssignment)
		teacher.GET("/assignments", c.assignment.ListAssignments)
		teacher.DELETE("/assignments/:id", c.assignment.DeleteAssignment)
		teacher.GET("/assignments/:id/submissions", c.assignment.ListAssignmentSubmissions)
		teacher.POST("/submissions/:id/grade", c.assignment.GradeSubmission)
	}
}
