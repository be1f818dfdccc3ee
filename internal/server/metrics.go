package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	overviewdomain "github.com/smallbiznis/revenuemetrics/internal/billingoverview/domain"
	"github.com/smallbiznis/revenuemetrics/internal/billingoverview/render"
)

const (
	formatJSON     = "json"
	formatMarkdown = "markdown"

	markdownContentType = "text/markdown; charset=utf-8"
)

type metricsQuery struct {
	PeriodDays int    `form:"period_days" binding:"omitempty,min=1,max=365"`
	Format     string `form:"format" binding:"omitempty,oneof=json markdown"`
}

func parseMetricsQuery(c *gin.Context) (metricsQuery, error) {
	var q metricsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		if asValidationErrors(err) != nil {
			return metricsQuery{}, err
		}
		return metricsQuery{}, newValidationError("query", "invalid_request", "query parameters could not be parsed")
	}
	if q.Format == "" {
		q.Format = formatJSON
	}
	return q, nil
}

func (q metricsQuery) request() overviewdomain.OverviewRequest {
	return overviewdomain.OverviewRequest{PeriodDays: q.PeriodDays}
}

// respond runs compute and writes the result as JSON or as a markdown report.
func respond[T any](
	s *Server,
	c *gin.Context,
	compute func(context.Context, overviewdomain.OverviewRequest) (T, error),
	markdown func(T) string,
) {
	q, err := parseMetricsQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := compute(c.Request.Context(), q.request())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if q.Format == formatMarkdown {
		body := markdown(result) + render.Generated(s.clock.Now())
		c.Data(http.StatusOK, markdownContentType, []byte(body))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) GetMRR(c *gin.Context) {
	respond(s, c, func(ctx context.Context, _ overviewdomain.OverviewRequest) (overviewdomain.MRRResult, error) {
		return s.overviewSvc.GetMRR(ctx)
	}, render.RenderMRR)
}

func (s *Server) GetChurn(c *gin.Context) {
	respond(s, c, s.overviewSvc.GetChurn, render.RenderChurn)
}

func (s *Server) GetRevenueByPlan(c *gin.Context) {
	respond(s, c, func(ctx context.Context, _ overviewdomain.OverviewRequest) (overviewdomain.RevenueByPlanResult, error) {
		return s.overviewSvc.GetRevenueByPlan(ctx)
	}, render.RenderRevenueByPlan)
}

func (s *Server) GetMRRMovement(c *gin.Context) {
	respond(s, c, s.overviewSvc.GetMRRMovement, render.RenderMovement)
}

func (s *Server) GetSubscriberStats(c *gin.Context) {
	respond(s, c, s.overviewSvc.GetSubscriberStats, render.RenderSubscriberStats)
}

func (s *Server) GetRecentChanges(c *gin.Context) {
	respond(s, c, s.overviewSvc.GetRecentChanges, render.RenderRecentChanges)
}

func (s *Server) GetExpiringTrials(c *gin.Context) {
	respond(s, c, func(ctx context.Context, _ overviewdomain.OverviewRequest) ([]overviewdomain.ExpiringTrial, error) {
		return s.overviewSvc.GetExpiringTrials(ctx)
	}, render.RenderExpiringTrials)
}

func (s *Server) GetDashboard(c *gin.Context) {
	respond(s, c, s.overviewSvc.GetDashboard, render.RenderDashboard)
}
