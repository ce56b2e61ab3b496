package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"web/polaris/events"
	"web/polaris/metrics"
	"web/polaris/runner"
)

// Server exposes a SessionService over HTTP.
type Server struct {
	sessions runner.SessionService
	hub      *Hub
	logger   *slog.Logger
}

func NewServer(sessions runner.SessionService, subscriber events.Subscriber, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sessions: sessions,
		hub:      NewHub(subscriber, logger),
		logger:   logger,
	}
}

func (s *Server) Hub() *Hub {
	return s.hub
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), metrics.Middleware(), cors())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/datasets", s.listDatasets)
	api.POST("/datasets", s.createDataset)
	api.GET("/sessions", s.listSessions)
	api.POST("/sessions", s.createSession)
	api.DELETE("/sessions/:id", s.closeSession)
	api.PUT("/sessions/:id/viewport", s.setViewport)
	api.GET("/sessions/:id/annotations", s.getAnnotations)
	api.GET("/sessions/:id/summary", s.getSummary)
	api.POST("/sessions/:id/gestures", s.gesture)
	api.PUT("/sessions/:id/selection", s.selectAnnotation)
	api.POST("/sessions/:id/callout/click", s.clickCallout)
	api.GET("/sessions/:id/events", s.events)

	return r
}

// httpStatus maps gRPC status codes onto HTTP.
func httpStatus(err error) int {
	switch status.Code(err) {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := httpStatus(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	msg := err.Error()
	if st, ok := status.FromError(err); ok {
		msg = st.Message()
	}
	c.JSON(code, gin.H{"error": msg})
}

func (s *Server) listDatasets(c *gin.Context) {
	resp, err := s.sessions.ListDatasets(c.Request.Context(), &runner.ListDatasetsRequest{})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.Datasets)
}

func (s *Server) createDataset(c *gin.Context) {
	var req runner.CreateDatasetRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	resp, err := s.sessions.CreateDataset(c.Request.Context(), &req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp.Dataset)
}

func (s *Server) listSessions(c *gin.Context) {
	resp, err := s.sessions.ListSessions(c.Request.Context(), &runner.ListSessionsRequest{})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.Sessions)
}

func (s *Server) createSession(c *gin.Context) {
	var req runner.CreateSessionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	resp, err := s.sessions.CreateSession(c.Request.Context(), &req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp.Session)
}

func (s *Server) closeSession(c *gin.Context) {
	if _, err := s.sessions.CloseSession(c.Request.Context(), &runner.SessionRequest{SessionID: c.Param("id")}); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) setViewport(c *gin.Context) {
	var req runner.SetViewportRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.SessionID = c.Param("id")
	resp, err := s.sessions.SetViewport(c.Request.Context(), &req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.Session)
}

func (s *Server) getAnnotations(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))
	resp, err := s.sessions.GetAnnotations(c.Request.Context(), &runner.AnnotationsRequest{
		SessionID: c.Param("id"),
		All:       all,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getSummary(c *gin.Context) {
	resp, err := s.sessions.GetSummary(c.Request.Context(), &runner.SessionRequest{SessionID: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.Summary)
}

func (s *Server) gesture(c *gin.Context) {
	var req runner.GestureRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.SessionID = c.Param("id")
	resp, err := s.sessions.Gesture(c.Request.Context(), &req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) selectAnnotation(c *gin.Context) {
	var req runner.SelectRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.SessionID = c.Param("id")
	resp, err := s.sessions.Select(c.Request.Context(), &req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.Session)
}

func (s *Server) clickCallout(c *gin.Context) {
	resp, err := s.sessions.ClickCallout(c.Request.Context(), &runner.SessionRequest{SessionID: c.Param("id")})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) events(c *gin.Context) {
	s.hub.Serve(c.Writer, c.Request, c.Param("id"))
}
