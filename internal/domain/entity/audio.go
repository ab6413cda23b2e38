package entity

import "io"

// AudioAsset 一个上传的音频文件，Open 每次返回新的读取器
type AudioAsset struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}
