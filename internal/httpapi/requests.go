// Package httpapi wires the HTTP surface: request decoding and validation,
// response envelopes, routing, and the thin adapters that turn validated
// requests into calls against rankservice and controlplane. It has no
// scoring or control-plane logic of its own.
package httpapi

// UpdateScoreRequest is the body of POST /api/rank/update_score.
type UpdateScoreRequest struct {
	AppID    string `json:"appid" validate:"required,min=3,max=64"`
	RankKey  string `json:"rank_key" validate:"required,min=3,max=20"`
	OpenID   string `json:"openid" validate:"required,min=3,max=64"`
	NickName string `json:"nick_name" validate:"required"`
	Score    int64  `json:"score" validate:"min=0,max=100000000"`
}

// GetUserRankRequest is the body of POST /api/rank/get_user_rank.
type GetUserRankRequest struct {
	AppID   string `json:"appid" validate:"required,min=3,max=64"`
	OpenID  string `json:"openid" validate:"required,min=3,max=64"`
	RankKey string `json:"rank_key" validate:"required,min=3,max=20"`
}

// GetUserScoreRequest is the body of POST /api/rank/get_user_score.
type GetUserScoreRequest struct {
	AppID   string `json:"appid" validate:"required,min=3,max=64"`
	OpenID  string `json:"openid" validate:"required,min=3,max=64"`
	RankKey string `json:"rank_key" validate:"required,min=3,max=20"`
}

// GetTopUserRankRequest is the body of POST /api/rank/get_top_user_rank.
type GetTopUserRankRequest struct {
	AppID   string `json:"appid" validate:"required,min=3,max=64"`
	RankKey string `json:"rank_key" validate:"required,min=3,max=20"`
	TopN    int64  `json:"top_n" validate:"min=1,max=30"`
}

// AddRankConfigRequest is the body of POST /api/rank/add_rank_config.
type AddRankConfigRequest struct {
	AppID          string `json:"appid" validate:"required,min=3,max=64"`
	RankKey        string `json:"rank_key" validate:"required,min=3,max=20"`
	AppSecret      string `json:"app_secret" validate:"required,min=8,max=64"`
	CronExpression string `json:"cron_expression"`
	Remark         string `json:"remark"`
}
