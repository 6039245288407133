package models

import "time"

// Participant is one member of a conversation.
type Participant struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Type   PartyType `json:"type"`
	Avatar string    `json:"avatar,omitempty"`
}

// Conversation is a support thread between admins and marketplace users.
type Conversation struct {
	ID               string        `json:"id"`
	Participants     []Participant `json:"participants"`
	LastMessage      string        `json:"lastMessage"`
	LastMessageTime  time.Time     `json:"lastMessageTime"`
	UnreadCount      int           `json:"unreadCount"`
	Status           string        `json:"status"`
	Subject          string        `json:"subject,omitempty"`
	RelatedOrderID   string        `json:"relatedOrderId,omitempty"`
	RelatedServiceID string        `json:"relatedServiceId,omitempty"`
}

// CallLog records a support call.
type CallLog struct {
	ID              string    `json:"id"`
	CallerID        string    `json:"callerId"`
	CallerName      string    `json:"callerName"`
	CallerType      PartyType `json:"callerType"`
	ReceiverID      string    `json:"receiverId"`
	ReceiverName    string    `json:"receiverName"`
	ReceiverType    PartyType `json:"receiverType"`
	DurationSeconds int       `json:"duration"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	RelatedOrderID  string    `json:"relatedOrderId,omitempty"`
}

// MessageType is the kind of content a chat message carries.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

// Message is one entry in a conversation.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	SenderName     string      `json:"senderName"`
	SenderType     PartyType   `json:"senderType"`
	Body           string      `json:"message"`
	Timestamp      time.Time   `json:"timestamp"`
	Read           bool        `json:"isRead"`
	Type           MessageType `json:"messageType"`
	Attachments    []string    `json:"attachments,omitempty"`
}

// NewConversation is the body of a create-conversation request.
type NewConversation struct {
	UserID    string    `json:"userId"`
	UserType  PartyType `json:"userType"`
	Subject   string    `json:"subject,omitempty"`
	RelatedID string    `json:"relatedId,omitempty"`
}

// NewMessage is the body of a send-message request.
type NewMessage struct {
	Message string `json:"message"`
}

// CallRequest asks the API to start a call to a marketplace user.
type CallRequest struct {
	UserID   string    `json:"userId"`
	UserType PartyType `json:"userType"`
}
