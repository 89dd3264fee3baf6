package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：可恢复/告警类（例如字体缺失但渲染继续）
// - 5xxx：生成失败，客户端应展示重试入口
const (
	OK            = 0
	FontFallback  = 4004
	SystemError   = 5000
	RenderFault   = 5001
	TimeoutFault  = 5002
	DeliveryFault = 5003
)
