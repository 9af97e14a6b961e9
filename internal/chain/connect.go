package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Dial opens a Client against url, e.g. via rpcclient.New.
type Dial func(url string) (Client, error)

// Connect dials url and confirms the node's reported chain name matches
// want, retrying with exponential backoff (capped at backoffMax) on dial or
// transport failure. A chain-name mismatch is never retried: it means the
// indexer was pointed at the wrong network, not a transient fault.
func Connect(ctx context.Context, dial Dial, url, want string, backoffMin, backoffMax time.Duration, log zerolog.Logger) (Client, error) {
	backoff := backoffMin
	for {
		client, err := dial(url)
		if err == nil {
			name, nerr := client.ChainName(ctx)
			if nerr == nil {
				if name != want {
					return nil, fmt.Errorf("connected node reports chain %q, want %q", name, want)
				}
				log.Info().Str("url", url).Str("chain", name).Msg("connected to chain")
				return client, nil
			}
			err = nerr
		}

		log.Warn().Err(err).Dur("retry_in", backoff).Msg("chain connect failed, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if backoff < backoffMax {
			backoff *= 2
			if backoff > backoffMax {
				backoff = backoffMax
			}
		}
	}
}
