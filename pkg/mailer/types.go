package mailer

// Message is an outbound email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// SendResponse is returned by the provider on success.
type SendResponse struct {
	ID string `json:"id"`
}
