//go:build opencv

package main

import _ "glyphprep/internal/opencv"
