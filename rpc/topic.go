package rpc

import "strings"

// Topic layout: /remotify/<serverId>/call/<functionName> for calls,
// /remotify/<serverId>/callback/<callerId> for replies.
const (
	topicPrefix    = "/remotify/"
	callSegment    = "/call/"
	replySegment   = "/callback/"
	patternSegment = "/call/*"
)

// CallTopic returns the topic a call to function on serverID is published to.
func CallTopic(serverID, function string) string {
	return topicPrefix + serverID + callSegment + function
}

// CallPattern returns the pattern covering every call topic of serverID.
func CallPattern(serverID string) string {
	return topicPrefix + serverID + patternSegment
}

// CallbackTopic returns the topic replies for callerID on serverID are
// published to.
func CallbackTopic(serverID, callerID string) string {
	return topicPrefix + serverID + replySegment + callerID
}

// ParseCallTopic splits a call topic into its server id and function name.
// ok is false for anything that does not follow the call topic layout.
func ParseCallTopic(topic string) (serverID, function string, ok bool) {
	rest, found := strings.CutPrefix(topic, topicPrefix)
	if !found {
		return "", "", false
	}
	serverID, function, found = strings.Cut(rest, callSegment)
	if !found || serverID == "" || function == "" {
		return "", "", false
	}
	return serverID, function, true
}

// validID reports whether a server or caller id can appear as one topic
// segment. Glob metacharacters are rejected along with separators and
// whitespace so the call pattern built from an id matches the same
// topics on every backend.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/*?[\\ \t\r\n")
}
