package api

import (
	"context"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// External events arrive from outside parties (github webhooks, generic POSTs from other systems)
// on a separate port from the main API. The service does no processing of its own; it looks up the
// extension named in the path and relays the raw body so the extension can decide whether the event
// maps onto any of its subscriptions. Bad events are logged and dropped since the sender is usually
// a third party webhook that can't do anything useful with an error.

// StartExternalEventsService starts the HTTP service for external events and blocks until a
// SIGINT or SIGTERM is received.
func (apictx *APIContext) StartExternalEventsService() {
	router := mux.NewRouter()
	router.Handle("/external/{extension}", http.HandlerFunc(apictx.externalEventHandler)).Methods(http.MethodPost)

	tlsConfig, err := apictx.generateTLSConfig(apictx.config.Server.TLSCertPath, apictx.config.Server.TLSKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("could not get proper TLS config")
	}

	httpServer := http.Server{
		Addr:         apictx.config.ExternalEventsAPI.Host,
		Handler:      router,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		TLSConfig:    tlsConfig,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("url", httpServer.Addr).Msg("started gofer external events service")
		if err := httpServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("external events service exited abnormally")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), apictx.config.ShutdownGrace())
	defer cancel()

	err = httpServer.Shutdown(shutdownCtx)
	if err != nil {
		log.Error().Err(err).Msg("could not shutdown external events service in timeout specified")
		return
	}

	log.Info().Msg("external events service exited gracefully")
}

// externalEventHandler relays the raw request body to the extension named in the URL.
func (apictx *APIContext) externalEventHandler(w http.ResponseWriter, r *http.Request) {
	extensionID := mux.Vars(r)["extension"]

	client, err := apictx.extensionClientFromCache(extensionID)
	if err != nil {
		log.Debug().Err(err).Str("extension", extensionID).Msg("dropped external event for unknown extension")
		w.WriteHeader(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB ought to cover any webhook payload.
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	err = client.ExternalEvent(body)
	if err != nil {
		log.Error().Err(err).Str("extension", extensionID).Msg("could not relay external event to extension")
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusOK)
}
