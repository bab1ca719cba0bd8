package serve

import (
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/firstfit/internal/common/armadacontext"
)

const shutdownTimeout = 5 * time.Second

// ListenAndServe calls server.ListenAndServe and shuts the server down once ctx is cancelled.
// It returns nil if the server was shut down because of ctx.
func ListenAndServe(ctx *armadacontext.Context, server *http.Server) error {
	errC := make(chan error, 1)
	go func() {
		errC <- server.ListenAndServe()
	}()
	select {
	case err := <-errC:
		return errors.WithStack(err)
	case <-ctx.Done():
		shutdownCtx, cancel := armadacontext.WithTimeout(armadacontext.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.WithStack(err)
		}
		if err := <-errC; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.WithStack(err)
		}
		return nil
	}
}
