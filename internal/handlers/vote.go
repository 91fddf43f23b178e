package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"startuppush/internal/services"
)

type VoteHandler struct {
	votes *services.VoteLedger
}

func NewVoteHandler(svc *services.Services) *VoteHandler {
	return &VoteHandler{votes: svc.Votes}
}

type voteRequest struct {
	ProductID uint `json:"productId" binding:"required"`
	Value     int  `json:"value"`
}

// Vote POST /api/votes
func (h *VoteHandler) Vote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "productId and value are required")
		return
	}
	res, err := h.votes.CastVote(c.Request.Context(), currentUser(c), req.ProductID, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
