package detectors

import "regexp"

var reSlackWebhook = regexp.MustCompile(`https://hooks\.slack\.com/services/T[A-Z0-9]{8,}/[BC][A-Z0-9]{8,}/[A-Za-z0-9]{24,}`)

// SlackWebhook detects incoming webhook URLs.
func SlackWebhook() Detector {
	return &regexDetector{
		name:     "slack_webhook",
		kind:     "slack_webhook",
		patterns: []pattern{{re: reSlackWebhook, reason: "Slack incoming webhook URL"}},
		redact:   true,
	}
}
