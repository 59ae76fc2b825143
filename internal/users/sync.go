package users

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"printstudio_backend/platform/httpkit"
	"printstudio_backend/platform/logger"
)

const contactSyncTTL = 10 * time.Minute

// ContactSync returns middleware that mirrors the email and name claims of
// authenticated requests into the users table. The write is best effort and
// cached per user so repeated requests do not hit the database.
func ContactSync(repo *Repository, log *logger.Logger) gin.HandlerFunc {
	var seen sync.Map // map[uuid.UUID]time.Time

	return func(c *gin.Context) {
		identity := httpkit.GetIdentity(c)
		if !identity.IsAuthenticated() {
			c.Next()
			return
		}

		email, _ := c.Get(httpkit.ContextEmailKey)
		emailText, _ := email.(string)
		if emailText == "" {
			c.Next()
			return
		}
		name, _ := c.Get(httpkit.ContextFullNameKey)
		nameText, _ := name.(string)

		userID := identity.UserID()
		if fresh(&seen, userID) {
			c.Next()
			return
		}

		if err := repo.Upsert(c.Request.Context(), userID, emailText, nameText); err != nil {
			log.Warn("contact sync failed", "userId", userID, "error", err)
		} else {
			seen.Store(userID, time.Now().Add(contactSyncTTL))
		}

		c.Next()
	}
}

func fresh(seen *sync.Map, userID uuid.UUID) bool {
	cached, ok := seen.Load(userID)
	if !ok {
		return false
	}
	expiresAt, ok := cached.(time.Time)
	if !ok || time.Now().After(expiresAt) {
		seen.Delete(userID)
		return false
	}
	return true
}
