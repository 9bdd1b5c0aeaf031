package emailsvc

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/pratikpatil/academy-fees/core"
)

// dummyService records rendered messages instead of delivering them; used in
// tests. FailNext makes deliveries fail on demand to exercise the callers'
// best-effort paths.
type dummyService struct {
	mu       sync.Mutex
	sent     []core.EmailMessage
	failWith error
}

var _ core.EmailService = (*dummyService)(nil)

func NewDummyService() *dummyService {
	return &dummyService{}
}

func (svc *dummyService) SendMessage(msg *core.EmailMessage) error {
	if err := msg.Render(); err != nil {
		return errors.Wrap(err, "rendering email")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.failWith != nil {
		return svc.failWith
	}
	if msg.HasRecipients() && msg.HasContent() {
		svc.sent = append(svc.sent, *msg)
	}
	return nil
}

func (svc *dummyService) FailWith(err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.failWith = err
}

func (svc *dummyService) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	sent := make([]core.EmailMessage, len(svc.sent))
	copy(sent, svc.sent)
	return sent
}
