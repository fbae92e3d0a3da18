package models

// SMSStatusCallback is the SMS provider's delivery callback. The provider has
// shipped several generations of this payload, so both the message id and the
// status code arrive under one of several field names.
type SMSStatusCallback struct {
	ID        string `json:"id"`
	MsgID     string `json:"msg_id"`
	MessageID string `json:"message_id"`
	Situacao  string `json:"situacao"`
	Status    string `json:"status"`
	Codigo    string `json:"codigo"`
	Code      string `json:"code"`
}

// WACloudEnvelope is the cloud API webhook envelope: message and status
// events nested under entry[].changes[].value.
type WACloudEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string       `json:"field"`
			Value WACloudValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type WACloudValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Messages []WACloudInboundMessage `json:"messages"`
	Statuses []WACloudStatusEvent    `json:"statuses"`
}

type WACloudInboundMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
}

type WACloudStatusEvent struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
	Errors      []struct {
		Code    int    `json:"code"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"errors"`
}

// ZAPICallback is transport B's delivery callback; it follows the same
// id/status shape as the cloud API's status event where applicable.
type ZAPICallback struct {
	MessageID string `json:"messageId"`
	ID        string `json:"id"`
	Status    string `json:"status"`
	Phone     string `json:"phone"`
	Error     string `json:"error,omitempty"`
}
