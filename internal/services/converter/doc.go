// Package converter wraps the remote text-to-clip endpoint. Convert posts
// {text} and returns the ordered clip URIs found in {results:[{word,path}]}.
package converter
