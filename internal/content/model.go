package content

type Bank struct {
	Topics []Topic  `json:"topics"`
	Words  []string `json:"words"`
}

type Topic struct {
	ID        string           `json:"id"`
	Label     string           `json:"label"`
	Questions []QuestionRecord `json:"questions"`
}

type QuestionRecord struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

type TopicSummary struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Questions int    `json:"questions"`
}
