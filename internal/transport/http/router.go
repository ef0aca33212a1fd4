package apihttp

import (
	"net/http"
	"strconv"

	"posbook/internal/account"
	"posbook/internal/logger"
	"posbook/internal/store/journal"
	"posbook/internal/types"

	"github.com/gin-gonic/gin"
)

// Router exposes the account query endpoints.
type Router struct {
	accounts *account.Manager
	journal  *journal.Store
}

func NewRouter(accounts *account.Manager, logs *journal.Store) *Router {
	return &Router{accounts: accounts, journal: logs}
}

// Register mounts the query routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/accounts", r.handleAccounts)
	group.GET("/accounts/:account", r.handleAccountSnapshot)
	group.GET("/accounts/:account/ledger", r.handleLedger)
	group.GET("/accounts/:account/positions", r.handlePositions)
	group.GET("/accounts/:account/journal", r.handleJournal)
}

func (r *Router) handleAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"accounts": r.accounts.AccountIDs()})
}

func (r *Router) handleAccountSnapshot(c *gin.Context) {
	snap, ok := r.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": snap})
}

func (r *Router) handleLedger(c *gin.Context) {
	snap, ok := r.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ledger":      snap.Ledger,
		"trading_day": snap.TradingDay,
	})
}

func (r *Router) handlePositions(c *gin.Context) {
	snap, ok := r.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"positions":   snap.Positions,
		"trading_day": snap.TradingDay,
	})
}

func (r *Router) handleJournal(c *gin.Context) {
	if r.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal not enabled"})
		return
	}
	accountID := c.Param("account")
	if _, ok := r.accounts.Get(accountID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown account"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	entries, err := r.journal.Tail(accountID, limit)
	if err != nil {
		logger.Errorf("[api] journal tail failed account=%s err=%v", accountID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "limit": limit})
}

func (r *Router) snapshot(c *gin.Context) (types.AccountSnapshot, bool) {
	accountID := c.Param("account")
	view, err := r.accounts.Snapshot(accountID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown account"})
		return types.AccountSnapshot{}, false
	}
	return view, true
}
