package shared

import (
	"crypto/tls"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const UserAgent = "istock/1.0"

func insecure() bool {
	return strings.ToLower(os.Getenv("IGNORE_SSL_CERTS")) == "true"
}

// HttpClient is the client used for outbound calls to data providers.
func HttpClient(timeout time.Duration) *http.Client {
	if insecure() {
		log.Warn("SSL certificate verification disabled")
		tr := &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
		return &http.Client{Transport: tr, Timeout: timeout}
	}

	return &http.Client{Timeout: timeout}
}

// FiberAgent returns an agent for a single GET; call fiber.ReleaseAgent
// only if Bytes/String was not called.
func FiberAgent(url string, timeout time.Duration) *fiber.Agent {
	agent := fiber.Get(url)
	agent.Timeout(timeout)
	agent.UserAgent(UserAgent)

	if insecure() {
		log.Warn("SSL certificate verification disabled for Fiber Agent")
		agent.InsecureSkipVerify()
	}

	return agent
}
