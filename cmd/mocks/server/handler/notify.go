package handler

import (
	"net/http"
	"time"

	"food-order-loadtest/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PushUser struct {
	UserId       string    `json:"user_id" binding:"required"`
	DeviceToken  string    `json:"device_token" binding:"required"`
	Platform     string    `json:"platform"`
	RegisteredAt time.Time `json:"registered_at"`
}

type PushRequest struct {
	UserIds []string `json:"user_ids" binding:"required,min=1"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
}

type WhatsAppRequest struct {
	To       string `json:"to" binding:"required"`
	Template string `json:"template"`
	Text     string `json:"text"`
}

func (h *Handler) RegisterPushUser(c *gin.Context) {
	var user PushUser
	if err := c.ShouldBindJSON(&user); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	user.RegisteredAt = time.Now().UTC()
	if err := h.PushUsers.Save(c, user); err != nil {
		h.storeError(c, "push user", err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, "User registered", user)
}

func (h *Handler) DeletePushUser(c *gin.Context) {
	if err := h.PushUsers.Delete(c, c.Param("id")); err != nil {
		h.storeError(c, "push user", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendPush reports how many recipients had a registered device. Unknown
// users are accepted and counted as undelivered.
func (h *Handler) SendPush(c *gin.Context) {
	var req PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	delivered := 0
	for _, id := range req.UserIds {
		if _, err := h.PushUsers.Load(c, id); err == nil {
			delivered++
		}
	}
	utils.SendSuccess(c, http.StatusOK, "Notification queued", map[string]any{
		"message_id": uuid.NewString(),
		"delivered":  delivered,
		"failed":     len(req.UserIds) - delivered,
	})
}

func (h *Handler) SendWhatsApp(c *gin.Context) {
	var req WhatsAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{
		"messaging_product": "whatsapp",
		"contacts":          []map[string]string{{"input": req.To, "wa_id": req.To}},
		"messages":          []map[string]string{{"id": "wamid." + uuid.NewString()}},
	})
}
