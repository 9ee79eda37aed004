package msg

type Msg struct {
	Type string `json:"type"`
	Time int64  `json:"time"`
	Data string `json:"data"`
}
