package handler

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"food-order-loadtest/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OTPRecord lives for OTP_TTL; a later send for the same mobile replaces it.
type OTPRecord struct {
	Mobile   string    `json:"mobile"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

type SendOTPRequest struct {
	Mobile string `json:"mobile" binding:"required"`
}

type VerifyOTPRequest struct {
	Mobile string `json:"mobile" binding:"required"`
	Otp    string `json:"otp" binding:"required"`
}

func (h *Handler) newCode() string {
	if h.Config.FixedOTP != "" {
		return h.Config.FixedOTP
	}
	return fmt.Sprintf("%06d", rand.Intn(1_000_000))
}

func (h *Handler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}

	record := OTPRecord{Mobile: req.Mobile, Code: h.newCode(), IssuedAt: time.Now().UTC()}
	if err := h.OTPs.Save(c, record); err != nil {
		h.storeError(c, "otp", err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, "OTP sent", map[string]any{
		"request_id": uuid.NewString(),
		"mobile":     record.Mobile,
		"expires_in": int(h.Config.OTPTTL.Seconds()),
	})
}

// VerifyOTP consumes the code on success.
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}

	record, err := h.OTPs.Load(c, req.Mobile)
	if err != nil {
		h.storeError(c, "otp", err)
		return
	}
	if record.Code != req.Otp {
		utils.SendError(c, http.StatusBadRequest, "OTP_MISMATCH", "invalid otp", "")
		return
	}
	if err := h.OTPs.Delete(c, req.Mobile); err != nil {
		h.storeError(c, "otp", err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, "OTP verified", map[string]any{"mobile": req.Mobile, "verified": true})
}
