package mqtt

import "strings"

// JoinTopic joins topic levels with "/", skipping empty levels.
//
//	JoinTopic("miio", "event", "lumi.158d0001", "motion")
//	// "miio/event/lumi.158d0001/motion"
func JoinTopic(levels ...string) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "/")
}

// SplitTopic splits a topic into its levels.
func SplitTopic(topic string) []string {
	if topic == "" {
		return nil
	}
	return strings.Split(topic, "/")
}

// TopicMatches reports whether topic matches the subscription filter, using
// MQTT wildcard rules: + matches exactly one level, # matches the remaining
// levels (including none) and must be last.
func TopicMatches(filter, topic string) bool {
	f := SplitTopic(filter)
	t := SplitTopic(topic)

	for i, level := range f {
		if level == "#" {
			return i == len(f)-1
		}
		if i >= len(t) {
			return false
		}
		if level != "+" && level != t[i] {
			return false
		}
	}
	return len(f) == len(t)
}
