package main

import (
	dcc "github.com/doismellburning/apdcc/src"
)

func main() {
	dcc.DccDecodeMain()
}
