// Package digest 提供多摘要流式校验能力。
//
// 一个 MultiDigest 同时维护多个独立的哈希状态（例如 sha1 + sha512），
// 对同一份字节流只读取一次即可得到全部摘要；Reader 在此基础上附加
// 字节计数与进度回调，回调返回 false 时以 ErrCancelled 终止读取。
//
// 算法通过 Register 在 init() 中注册，名称统一为小写，例如 "sha1"、
// "blake2b-512"。包清单中出现未注册的算法名时由调用方决定如何处理。
package digest
