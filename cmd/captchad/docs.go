package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           captchad API
// @version         1.0
// @description     HTTP API that solves captcha images with a pretrained ONNX model.
//
// @contact.name   captchad maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
