// Package media reads elementary streams from files for the sample producer.
package media

import (
	"github.com/lanikai/alohakvs/internal/logging"
)

var log = logging.DefaultLogger.WithTag("media")
