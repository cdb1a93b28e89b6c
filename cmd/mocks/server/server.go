package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"food-order-loadtest/cmd/mocks/server/handler"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Config  ServerConfig
	Handler *handler.Handler
	Router  *gin.Engine
	log     *zap.Logger
}

type ServerConfig struct {
	Port         string
	Delay        time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func NewServer(conf ServerConfig, h *handler.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &Server{
		Config:  conf,
		Handler: h,
		log:     logger,
	}

	server.SetupRouter()

	return server
}

func (s *Server) SetupRouter() {
	router := gin.New()

	//	middleware
	router.Use(gin.Recovery())
	router.Use(handler.RequestLogger(s.log))

	router.GET("/health", s.Handler.HealthCheck)

	// every provider answers after the configured delay
	api := router.Group("", handler.Delay(s.Config.Delay))
	{
		delivery := api.Group("/delivery-partner")
		{
			delivery.POST("/quote", s.Handler.DeliveryQuote)
			delivery.POST("/orders", s.Handler.CreateDelivery)
			delivery.GET("/orders", s.Handler.DeliveryByReference)
			delivery.GET("/orders/:id", s.Handler.DeliveryStatus)
			delivery.POST("/orders/:id/fulfill", s.Handler.FulfillDelivery)
			delivery.POST("/orders/:id/cancel", s.Handler.CancelDelivery)
		}

		payment := api.Group("/payment-gateway")
		{
			payment.POST("/orders", s.Handler.CreatePaymentOrder)
			payment.GET("/orders/:id", s.Handler.FetchPaymentOrder)
			payment.POST("/orders/:id/capture", s.Handler.CapturePayment)
			payment.POST("/orders/:id/refund", s.Handler.RefundPayment)
			payment.POST("/payments/verify", s.Handler.VerifyPayment)
		}

		pos := api.Group("/pos")
		{
			pos.POST("/orders", s.Handler.PushPosOrder)
			pos.POST("/orders/:id/status", s.Handler.PosOrderStatus)
		}

		sms := api.Group("/sms")
		{
			sms.POST("/otp/send", s.Handler.SendOTP)
			sms.POST("/otp/verify", s.Handler.VerifyOTP)
		}

		push := api.Group("/push")
		{
			push.POST("/send", s.Handler.SendPush)
			push.POST("/users", s.Handler.RegisterPushUser)
			push.DELETE("/users/:id", s.Handler.DeletePushUser)
		}

		api.POST("/whatsapp/messages", s.Handler.SendWhatsApp)
	}

	s.Router = router
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", s.Config.Port),
		Handler:      s.Router,
		ReadTimeout:  s.Config.ReadTimeout,
		WriteTimeout: s.Config.WriteTimeout,
		IdleTimeout:  s.Config.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("mocks starting", zap.String("port", s.Config.Port), zap.Duration("delay", s.Config.Delay))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return s.HandleShutdown(ctx, srv)
	})

	return g.Wait()
}

func (s *Server) HandleShutdown(ctx context.Context, srv *http.Server) error {
	<-ctx.Done()

	s.log.Info("shutting down mocks")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("failed to shutdown server", zap.Error(err))
		return err
	}

	s.log.Info("mocks stopped")
	return nil
}
