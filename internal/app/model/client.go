package model

// ClientCategory is the platform a visitor is dispatched to.
type ClientCategory string

const (
	ClientIOS     ClientCategory = "ios"
	ClientAndroid ClientCategory = "android"
	ClientDesktop ClientCategory = "desktop"
)

func (c ClientCategory) String() string {
	return string(c)
}
