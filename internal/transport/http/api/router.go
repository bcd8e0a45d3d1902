package apihttp

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"wheelhouse/internal/store/gormstore"
	"wheelhouse/internal/store/runlog"
)

// Router 暴露评估结果的查询接口。
type Router struct {
	store *gormstore.GormStore
	runs  *runlog.Store
}

func NewRouter(store *gormstore.GormStore, runs *runlog.Store) *Router {
	return &Router{store: store, runs: runs}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/verdicts", r.handleVerdicts)
	group.GET("/positions", r.handlePositions)
	group.GET("/positions/:id", r.handlePositionByID)
	group.GET("/alerts", r.handleAlerts)
	group.GET("/runs", r.handleRuns)
}

func (r *Router) handleRuns(c *gin.Context) {
	if r.runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run log disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	rows, err := r.runs.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": rows})
}

func (r *Router) handleVerdicts(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := r.store.RecentVerdicts(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verdicts": rows})
}

func (r *Router) handlePositions(c *gin.Context) {
	rows, err := r.store.ListOpenPositions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": rows})
}

func (r *Router) handlePositionByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position id"})
		return
	}
	pos, err := r.store.GetPosition(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (r *Router) handleAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := r.store.RecentAlerts(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": rows})
}
