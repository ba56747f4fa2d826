// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package safety

// deniedWords is the fixed list of bare words that may not appear anywhere
// inside a limited-code block. Matching is whole-word and case-insensitive.
// The list is a compatibility contract with stored templates: extend it,
// never shrink it.
var deniedWords = []string{
	// declarations and object construction
	"function", "fn", "class", "interface", "trait", "new", "clone",
	// dynamic evaluation
	"eval", "assert", "create_function", "call_user_func", "call_user_func_array",
	"extract", "parse_str", "unserialize",
	// file inclusion
	"include", "include_once", "require", "require_once",
	// process execution
	"shell", "shell_exec", "exec", "system", "passthru", "proc_open", "popen", "pcntl_exec",
	// file and network I/O
	"fopen", "fread", "fwrite", "fputs", "fgets", "file_get_contents", "file_put_contents",
	"readfile", "unlink", "rmdir", "mkdir", "rename", "chmod", "chown", "scandir",
	"curl_exec", "fsockopen",
	// timing and process control
	"sleep", "usleep", "set_time_limit", "die", "exit", "goto",
	// environment
	"putenv", "ini_set", "phpinfo",
	// host template engine: invokes function values
	"call",
}
