// Package protocol defines the agent bridge wire surface: the intent
// union the agent submits, the observation snapshot it reads back, the
// chat/advice/stream payloads, and the enumerated error codes.
package protocol

// APIVersion tags every observation; readers reject other versions.
const APIVersion = 1
