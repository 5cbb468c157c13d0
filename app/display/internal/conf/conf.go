package conf

type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Radar  *Radar  `json:"radar"`
}

type Server struct {
	Http *HTTP `json:"http"`
}

type HTTP struct {
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"`
}

type Data struct {
	Database *Database `json:"database"`
}

// Database driver 为 memory / sqlite / postgres
type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}

type Radar struct {
	Llm         *LLM         `json:"llm"`
	Log         *Log         `json:"log"`
	Concurrency *Concurrency `json:"concurrency"`
	Kafka       *Kafka       `json:"kafka"`
	Scoring     *Scoring     `json:"scoring"`
	Stores      []string     `json:"stores"`
}

type LLM struct {
	BaseUrl     string `json:"base_url"`
	ApiKey      string `json:"api_key"`
	Model       string `json:"model"`
	VisionModel string `json:"vision_model"`
}

type Log struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

type Concurrency struct {
	Qps     int32 `json:"qps"`
	Rpm     int32 `json:"rpm"`
	Workers int32 `json:"workers"`
}

type Kafka struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

type Scoring struct {
	// Weights analysis_type -> theme -> weight
	Weights    map[string]map[string]float64 `json:"weights"`
	AlertRules []*AlertRule                  `json:"alert_rules"`
}

type AlertRule struct {
	Theme        string  `json:"theme"`
	AnalysisType string  `json:"analysis_type"`
	Comparison   string  `json:"comparison"`
	Threshold    float64 `json:"threshold"`
	Severity     string  `json:"severity"`
}
