package model

type TypeCount struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

type ResponseTime struct {
	Day   string  `json:"day" yaml:"day"`
	Hours float64 `json:"time" yaml:"time"`
}

type AnalyticsReport struct {
	TotalUsers    int            `json:"totalUsers" yaml:"totalUsers"`
	TotalTeams    int            `json:"totalTeams" yaml:"totalTeams"`
	TotalQueries  int            `json:"totalQueries" yaml:"totalQueries"`
	QueryTypes    []TypeCount    `json:"queryTypes" yaml:"queryTypes"`
	ResponseTimes []ResponseTime `json:"responseTimes" yaml:"responseTimes"`
}
