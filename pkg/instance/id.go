// Package instance identifies the running workbench process.
package instance

import (
	"sync"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const appID = "algoblocks-workbench"

var (
	once sync.Once
	id   string
)

// ID returns a stable identifier for this host, hashed with the app id so
// the raw machine id is never exposed. Hosts without a readable machine id
// (containers, CI) get a random id for the life of the process.
func ID() string {
	once.Do(func() {
		mid, err := machineid.ProtectedID(appID)
		if err != nil {
			log.Debugf("[INSTANCE] machine id unavailable: %v", err)
			id = "ephemeral-" + uuid.NewString()[:8]
			return
		}
		if len(mid) > 16 {
			mid = mid[:16]
		}
		id = mid
	})
	return id
}
