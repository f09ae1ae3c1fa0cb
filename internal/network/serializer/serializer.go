package serializer

// Serializer 抽象了网络层“对象 <-> 字节流”的序列化能力。
//
// 设计目标：
//   - 面向网络消息编码，默认实现为自描述的 LedgerSerializer，JSON 仅用于调试与对接外部系统。
//   - 调用方通过接口注入具体实现，codec 不感知具体编码格式。
type Serializer interface {
	// Marshal 将任意对象编码为字节序列。
	Marshal(v any) ([]byte, error)

	// Unmarshal 将字节序列解码到目标对象。
	//
	// v 必须为非 nil 指针，用于接收解码结果。
	Unmarshal(data []byte, v any) error
}
