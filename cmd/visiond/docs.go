package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           visiond API
// @version         1.0
// @description     HTTP API for supervised local vision-model inference.
//
// @contact.name   visiond maintainers
// @contact.url    https://github.com/your-org/visiond
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
