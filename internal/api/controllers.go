package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"momentum-core/pkg/db"
	"momentum-core/pkg/exchanges/common"
)

type tradeResultResponse struct {
	ID             int64   `json:"id"`
	Exchange       string  `json:"exchange"`
	MarketType     string  `json:"market_type"`
	Symbol         string  `json:"symbol"`
	Side           string  `json:"side"`
	EntryTime      string  `json:"entry_time"`
	ExitTime       string  `json:"exit_time"`
	HoldingMinutes int     `json:"holding_minutes"`
	EntryPrice     string  `json:"entry_price"`
	ExitPrice      *string `json:"exit_price"`
	MaxROIPct      *string `json:"max_roi_pct"`
	MinROIPct      *string `json:"min_roi_pct"`
	ExitROIPct     *string `json:"exit_roi_pct"`
	MaxPriceDuring *string `json:"max_price_during"`
	MinPriceDuring *string `json:"min_price_during"`
	PriceBasis     string  `json:"price_basis"`
	Timezone       string  `json:"timezone"`
	Status         string  `json:"status"`
	Note           string  `json:"note,omitempty"`
	RunID          *int64  `json:"run_id"`
}

// getTopMarkets returns the live top-N ranking for one exchange.
// GET /api/markets/top?exchange=bithumb&n=5
func (s *Server) getTopMarkets(c *gin.Context) {
	exchange := common.Exchange(c.DefaultQuery("exchange", string(common.ExchangeBithumb)))
	ranker, ok := s.Rankers[exchange]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown exchange"})
		return
	}
	n, err := strconv.Atoi(c.DefaultQuery("n", "5"))
	if err != nil || n < 1 || n > 50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "n must be 1-50"})
		return
	}

	markets, err := ranker.TopN(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": exchange, "markets": markets})
}

// getTradeResults returns recent ledger rows.
// GET /api/results?exchange=bitget&limit=100
func (s *Server) getTradeResults(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	results, err := s.DB.ListTradeResults(c.Request.Context(), c.Query("exchange"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]tradeResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, toResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

// getJobRuns returns recent batch headers.
// GET /api/runs?limit=50
func (s *Server) getJobRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.DB.ListJobRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func toResponse(r db.TradeResult) tradeResultResponse {
	return tradeResultResponse{
		ID:             r.ID,
		Exchange:       r.Exchange,
		MarketType:     r.MarketType,
		Symbol:         r.Symbol,
		Side:           r.Side,
		EntryTime:      r.EntryTime.UTC().Format(time.RFC3339),
		ExitTime:       r.ExitTime.UTC().Format(time.RFC3339),
		HoldingMinutes: r.HoldingMinutes,
		EntryPrice:     r.EntryPrice,
		ExitPrice:      nullString(r.ExitPrice.String, r.ExitPrice.Valid),
		MaxROIPct:      nullString(r.MaxROIPct.String, r.MaxROIPct.Valid),
		MinROIPct:      nullString(r.MinROIPct.String, r.MinROIPct.Valid),
		ExitROIPct:     nullString(r.ExitROIPct.String, r.ExitROIPct.Valid),
		MaxPriceDuring: nullString(r.MaxPriceDuring.String, r.MaxPriceDuring.Valid),
		MinPriceDuring: nullString(r.MinPriceDuring.String, r.MinPriceDuring.Valid),
		PriceBasis:     r.PriceBasis,
		Timezone:       r.Timezone,
		Status:         r.Status,
		Note:           r.Note,
		RunID:          nullInt64(r.RunID.Int64, r.RunID.Valid),
	}
}

func nullString(v string, valid bool) *string {
	if !valid {
		return nil
	}
	return &v
}

func nullInt64(v int64, valid bool) *int64 {
	if !valid {
		return nil
	}
	return &v
}
