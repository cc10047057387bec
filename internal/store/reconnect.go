package store

import (
	"context"
	"log"
	"time"

	"github.com/skypath/gis/pkg/config"
)

// ReconnectWithRetry attempts to reconnect to the spatial backend with
// exponential backoff. Resilience against temporary backend outages.
func ReconnectWithRetry(dbCfg config.DatabaseConfig, poolCfg config.PoolConfig, maxRetries int, initialDelay time.Duration) (*Store, error) {
	delay := initialDelay
	attempt := 0

	for {
		attempt++
		log.Printf("store connection attempt %d...", attempt)

		s, err := Connect(dbCfg, poolCfg)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			pingErr := s.PingContext(ctx)
			cancel()

			if pingErr == nil {
				log.Println("store reconnected")
				return s, nil
			}
			s.Close()
			err = pingErr
		}

		if maxRetries > 0 && attempt >= maxRetries {
			log.Printf("failed to reconnect to store after %d attempts", attempt)
			return nil, err
		}

		log.Printf("store connection failed: %v (retry in %v)", err, delay)
		time.Sleep(delay)

		delay *= 2
		if delay > 60*time.Second {
			delay = 60 * time.Second
		}
	}
}

// HealthCheck performs a shallow liveness probe on the backend.
func HealthCheck(s *Store) bool {
	if s == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.PingContext(ctx); err != nil {
		log.Printf("store health check failed: %v", err)
		return false
	}

	var result int
	if err := s.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil || result != 1 {
		log.Printf("store health check query failed: %v", err)
		return false
	}
	return true
}
