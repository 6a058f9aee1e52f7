package control

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tetrahub/tetralog/internal/media"
)

// reply mirrors §6.3's "status word followed by payload parts" convention,
// translated to JSON since the Control API rides on HTTP/gin rather than a
// raw framed socket.
type reply struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func ok(data any) reply       { return reply{Status: "OK", Data: data} }
func nok(reason string) reply { return reply{Status: "NOK", Reason: reason} }

// getActiveCalls implements GET_ACTIVE_CALLS.
func (s *Server) getActiveCalls(c *gin.Context) {
	ids := s.registry.ActiveCallIDs()
	c.JSON(http.StatusOK, ok(gin.H{"count": len(ids), "call_ids": ids}))
}

// startCallInterception implements START_CALL_INTERCEPTION.
func (s *Server) startCallInterception(c *gin.Context) {
	callID, err := parseCallID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, nok(err.Error()))
		return
	}
	format := c.DefaultQuery("format", "alaw")

	url, err := s.router.StartCallInterception(callID, format)
	if err != nil {
		c.JSON(http.StatusOK, nok(interceptionErrorReason(err)))
		return
	}
	if s.secret != "" {
		url += "?token=" + streamToken(s.secret, callID)
	}
	c.JSON(http.StatusOK, ok(gin.H{"url": url}))
}

// stopCallInterception implements STOP_CALL_INTERCEPTION.
func (s *Server) stopCallInterception(c *gin.Context) {
	callID, err := parseCallID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, nok(err.Error()))
		return
	}
	if err := s.router.StopCallInterception(callID); err != nil {
		c.JSON(http.StatusOK, nok(interceptionErrorReason(err)))
		return
	}
	c.JSON(http.StatusOK, ok("OK"))
}

// ping implements PING: the echo payload is returned verbatim.
func (s *Server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, ok(gin.H{"echo": c.Query("echo")}))
}

// startPlayCall and stopPlayCall are the proxied playback commands. The
// playback collaborator is out of core scope entirely (spec §1 Non-goals),
// so these always report it unavailable rather than pretending to delegate
// to a collaborator that doesn't exist.
func (s *Server) startPlayCall(c *gin.Context) {
	c.JSON(http.StatusOK, nok("playback collaborator not configured"))
}

func (s *Server) stopPlayCall(c *gin.Context) {
	c.JSON(http.StatusOK, nok("playback collaborator not configured"))
}

func parseCallID(c *gin.Context) (uint32, error) {
	v, err := strconv.ParseUint(c.Param("call_id"), 10, 32)
	if err != nil {
		return 0, errBadCallID
	}
	return uint32(v), nil
}

var errBadCallID = errors.New("call_id must be a non-negative integer")

func interceptionErrorReason(err error) string {
	switch {
	case errors.Is(err, media.ErrCallNotFound):
		return "call not found"
	case errors.Is(err, media.ErrFeederUnavailable):
		return "feeder not available"
	case errors.Is(err, media.ErrNotIntercepted):
		return "call has no active interception"
	default:
		return err.Error()
	}
}
