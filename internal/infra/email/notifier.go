package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// SMTPNotifier emails the uploader when a conversion has permanently failed.
// Delivery is best effort; the job is already in the DLQ by the time this
// runs.
type SMTPNotifier struct {
	host   string
	port   int
	from   string
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, userEmail, jobID, videoKey, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	msg := n.buildMessage(userEmail, jobID, videoKey, errorMsg)

	if err := smtp.SendMail(addr, nil, n.from, []string{userEmail}, msg); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", userEmail),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", userEmail),
		zap.String("job_id", jobID),
	)
	return nil
}

func (n *SMTPNotifier) buildMessage(to, jobID, videoKey, errorMsg string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: WebP conversion failed [Job %s]\r\n", jobID)
	b.WriteString("\r\n")
	b.WriteString("Hello,\r\n\r\n")
	b.WriteString("Your video could not be converted to an animated WebP after all retry attempts.\r\n\r\n")
	fmt.Fprintf(&b, "Job ID: %s\r\n", jobID)
	fmt.Fprintf(&b, "Video: %s\r\n", videoKey)
	fmt.Fprintf(&b, "Error: %s\r\n\r\n", errorMsg)
	b.WriteString("Please check that the file is a valid video (WebM, MP4, GIF, MOV, MKV) and try again.\r\n\r\n")
	b.WriteString("-- vid2webp\r\n")
	return []byte(b.String())
}
