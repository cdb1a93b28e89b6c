package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	paymentprocessor "food-order-loadtest/cmd/mocks/server/payment-processor"
	"food-order-loadtest/pkg/payload"
	"food-order-loadtest/pkg/repository"
	"food-order-loadtest/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Config struct {
	Store          repository.RepositoryType
	Redis          repository.RedisConfig
	OTPTTL         time.Duration
	FixedOTP       string
	FailureRate    float64
	ProcessingTime time.Duration
}

// ConfigFromEnv reads MOCK_STORE, OTP_TTL, MOCK_OTP, PAYMENT_FAILURE_RATE and
// PAYMENT_PROCESSING_TIME. An empty MOCK_OTP issues random codes.
func ConfigFromEnv() Config {
	return Config{
		Store:          repository.RepositoryType(utils.GetEnv("MOCK_STORE", string(repository.RepositoryMemory))),
		Redis:          repository.RedisFromEnv(),
		OTPTTL:         utils.GetEnvDuration("OTP_TTL", 5*time.Minute),
		FixedOTP:       utils.GetEnv("MOCK_OTP", payload.DefaultOTP),
		FailureRate:    utils.GetEnvFloat("PAYMENT_FAILURE_RATE", 0),
		ProcessingTime: utils.GetEnvDuration("PAYMENT_PROCESSING_TIME", 0),
	}
}

type Handler struct {
	Config     Config
	OTPs       repository.Repository[OTPRecord]
	Deliveries repository.Repository[DeliveryOrder]
	Payments   repository.Repository[PaymentOrder]
	PushUsers  repository.Repository[PushUser]
	Processor  paymentprocessor.Processor
	log        *zap.Logger

	// serialises read-modify-write on delivery and payment records
	mu sync.Mutex
}

func NewHandler(ctx context.Context, conf Config, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	processor, err := paymentprocessor.NewProcessor(paymentprocessor.ProcessorMock, paymentprocessor.Options{
		FailureRate:    conf.FailureRate,
		ProcessingTime: conf.ProcessingTime,
	})
	if err != nil {
		return nil, err
	}

	otps, err := repository.NewRepository(ctx, conf.Store, func(r OTPRecord) string { return r.Mobile },
		repository.Options{TTL: conf.OTPTTL, Prefix: "mock:otp:", Redis: conf.Redis})
	if err != nil {
		return nil, err
	}
	deliveries, err := repository.NewRepository(ctx, conf.Store, func(d DeliveryOrder) string { return d.Id },
		repository.Options{Prefix: "mock:delivery:", Redis: conf.Redis})
	if err != nil {
		return nil, err
	}
	payments, err := repository.NewRepository(ctx, conf.Store, func(p PaymentOrder) string { return p.Id },
		repository.Options{Prefix: "mock:payment:", Redis: conf.Redis})
	if err != nil {
		return nil, err
	}
	pushUsers, err := repository.NewRepository(ctx, conf.Store, func(u PushUser) string { return u.UserId },
		repository.Options{Prefix: "mock:push:", Redis: conf.Redis})
	if err != nil {
		return nil, err
	}

	return &Handler{
		Config:     conf,
		OTPs:       otps,
		Deliveries: deliveries,
		Payments:   payments,
		PushUsers:  pushUsers,
		Processor:  processor,
		log:        logger.Named("handler"),
	}, nil
}

// Delay holds every request for d before it reaches the handler.
func Delay(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d > 0 {
			t := time.NewTimer(d)
			select {
			case <-t.C:
			case <-c.Request.Context().Done():
				t.Stop()
				c.AbortWithStatus(http.StatusServiceUnavailable)
				return
			}
		}
		c.Next()
	}
}

// RequestLogger logs one debug line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	health := map[string]any{
		"status":  "healthy",
		"service": "mocks",
		"store":   string(h.Config.Store),
	}
	utils.SendSuccess(c, http.StatusOK, "Service is Healthy", health)
}

func (h *Handler) storeError(c *gin.Context, op string, err error) {
	if repository.IsNotFound(err) {
		utils.SendNotFound(c, op)
		return
	}
	h.log.Error("store failure", zap.String("op", op), zap.Error(err))
	utils.SendInternalError(c, "store unavailable")
}
