package request

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// 出现 data 且同时出现以下任一字段时，认为是后端的统一包装
var envelopeMarkers = []string{"code", "resultcode", "message", "success"}

// 包装中表示成功的业务码
var successCodes = map[int]bool{0: true, 200: true, 2000: true}

// TransformFunc 自定义响应转换，设置后完全替代默认的拆包逻辑
type TransformFunc func(raw []byte) ([]byte, error)

// Normalize 默认拆包：{code|resultcode|message|success, data} -> data，否则原样返回
// 不合法的包装不会报错，直接回退为原始响应体
func Normalize(raw []byte) []byte {
	fields, ok := envelopeFields(raw)
	if !ok {
		return raw
	}
	data, ok := fields["data"]
	if !ok {
		return raw
	}
	for _, k := range envelopeMarkers {
		if _, ok := fields[k]; ok {
			return data
		}
	}
	return raw
}

// FirstElement 拆包后只取数组第一个元素，空数组返回 null
func FirstElement(raw []byte) ([]byte, error) {
	payload := bytes.TrimSpace(Normalize(raw))
	if len(payload) == 0 || payload[0] != '[' {
		return payload, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("failed to decode array payload: %w", err)
	}
	if len(items) == 0 {
		return []byte("null"), nil
	}
	return items[0], nil
}

func envelopeFields(raw []byte) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

type envelopeStatus struct {
	Code       *int   `json:"code"`
	ResultCode *int   `json:"resultcode"`
	Success    *bool  `json:"success"`
	Message    string `json:"message"`
	Msg        string `json:"msg"`
}

// serverMessage 从响应体中取出后端给出的提示信息
func serverMessage(raw []byte) string {
	if _, ok := envelopeFields(raw); !ok {
		return ""
	}
	var st envelopeStatus
	if err := json.Unmarshal(bytes.TrimSpace(raw), &st); err != nil {
		return ""
	}
	if st.Message != "" {
		return st.Message
	}
	return st.Msg
}

// checkEnvelope HTTP 200 但包装里带错误码时返回应用层错误
func checkEnvelope(raw []byte) *Error {
	fields, ok := envelopeFields(raw)
	if !ok {
		return nil
	}
	_, hasCode := fields["code"]
	_, hasResultCode := fields["resultcode"]
	_, hasSuccess := fields["success"]
	if !hasCode && !hasResultCode && !hasSuccess {
		return nil
	}
	var st envelopeStatus
	if err := json.Unmarshal(bytes.TrimSpace(raw), &st); err != nil {
		return nil
	}
	msg := st.Message
	if msg == "" {
		msg = st.Msg
	}
	if st.Success != nil && !*st.Success {
		return &Error{Kind: KindApplication, ServerMessage: msg}
	}
	code := st.Code
	if code == nil {
		code = st.ResultCode
	}
	if code != nil && !successCodes[*code] {
		return &Error{Kind: KindApplication, Code: *code, ServerMessage: msg}
	}
	return nil
}
