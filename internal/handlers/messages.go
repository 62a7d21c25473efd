package handlers

import "strings"

// MessageType is the first element of every outbound frame.
type MessageType string

const (
	TypeInfo MessageType = "INFO"
	TypeCmd  MessageType = "CMD"
	TypeData MessageType = "DATA"
)

// Topic is the second element of every outbound frame.
type Topic string

const (
	TopicError            Topic = "ERROR"
	TopicJoin             Topic = "JOIN"
	TopicPlayerList       Topic = "PLAYERLIST"
	TopicPlayerJoined     Topic = "PLAYERJOINED"
	TopicLobbyReady       Topic = "LOBBYREADY"
	TopicGameStart        Topic = "GAMESTART"
	TopicRoleInfo         Topic = "ROLEINFO"
	TopicCharacterInfo    Topic = "CHARACTERINFO"
	TopicAllSent          Topic = "ALLSENT"
	TopicReceiveHandCards Topic = "RECEIVEHANDCARDS"
	TopicCard             Topic = "CARD"
	TopicNextTurn         Topic = "NEXTTURN"
	TopicPlayerDC         Topic = "PLAYERDC"
	TopicServerQuit       Topic = "SERVERQUIT"
)

// Join replies.
const (
	JoinAccepted = "ACK"
	JoinRejected = "REJ"
)

// Message is one outbound notification: <Type> <Topic> <data...>.
type Message struct {
	Type  MessageType
	Topic Topic
	Data  []string
}

// NewMessage builds a Message, copying data.
func NewMessage(typ MessageType, topic Topic, data ...string) Message {
	d := make([]string, len(data))
	copy(d, data)
	return Message{Type: typ, Topic: topic, Data: d}
}

// Frame flattens the message into the string array sent on the wire.
func (m Message) Frame() []string {
	frame := make([]string, 0, len(m.Data)+2)
	frame = append(frame, string(m.Type), string(m.Topic))
	return append(frame, m.Data...)
}

func (m Message) String() string {
	return strings.Join(m.Frame(), " ")
}
