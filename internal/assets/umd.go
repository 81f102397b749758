package assets

import (
	"fmt"
	"strconv"
)

// umdExports holds the entry module's exports inside the UMD factory.
const umdExports = "__umdpack_exports__"

func umdBanner(library string, namedDefine bool) string {
	quoted := strconv.Quote(library)

	define := "define([], factory);"
	if namedDefine {
		define = fmt.Sprintf("define(%s, [], factory);", quoted)
	}

	return fmt.Sprintf(`(function universalModuleDefinition(root, factory) {
	if (typeof exports === 'object' && typeof module === 'object')
		module.exports = factory();
	else if (typeof define === 'function' && define.amd)
		%s
	else if (typeof exports === 'object')
		exports[%s] = factory();
	else
		root[%s] = factory();
})(typeof self !== 'undefined' ? self : this, function() {`, define, quoted, quoted)
}

func umdFooter() string {
	return "return " + umdExports + ";\n});"
}
