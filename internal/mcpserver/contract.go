package mcpserver

// MarkupContract describes the prompt markup accepted by assemble_prompt
// and the assemble command.
const MarkupContract = `# PromptCraft Markup Contract

A prompt is plain text in which attachments are referenced by name. When the
prompt is assembled each reference is replaced by the referenced attachment's
full content.

## Structure

` + "```" + `markdown
---
title: Release notes draft          # OPTIONAL - shown in history only
attachments:                        # OPTIONAL - files or URLs to load first
  - notes/changelog.md
  - https://example.com/announcement
output: release-notes.txt           # OPTIONAL - default output file name
---

Write release notes from [[changelog.md]].
Match the tone of [[https://example.com/announcement]].
` + "```" + `

## Rules

1. **Frontmatter is optional.** When present, the ` + "`---`" + ` fences must be
   the first thing in the document.
2. **Each line is one block.** Blocks are joined with a single newline in the
   output. Nothing is appended after the last block.
3. **File references** use double brackets around a file name:
   ` + "`[[notes.md]]`" + `. The name must match an attachment's file name exactly
   (case-sensitive). When several attachments share the name, the first one
   added wins.
4. **URL references** use double brackets around a full http(s) URL:
   ` + "`[[https://example.com/post]]`" + `. The page is fetched as Markdown and
   stored under a derived name such as ` + "`example.com-post.md`" + `.
5. **Missing references** produce no output. They do not fail the assembly.
6. **Failed fetches** are replaced by a placeholder that names the domain and
   the error, so the prompt still assembles.
7. **Attachment types** are ` + "`.txt`" + `, ` + "`.md`" + ` and ` + "`.json`" + `. Content is used verbatim;
   Markdown is never rendered into the prompt.

## Tools

- ` + "`add_attachment`" + ` adds text content, or a base64 ` + "`data:`" + ` URI of a text file.
- ` + "`add_url`" + ` fetches a page now and adds it as an attachment.
- ` + "`list_attachments`" + ` and ` + "`remove_attachment`" + ` manage the session's store.
- ` + "`assemble_prompt`" + ` resolves markup against the session's attachments and
  returns the final text.

## Example

Attachments: ` + "`ctx.md`" + ` containing ` + "`The API returns 404 for missing users.`" + `

Markup:

` + "```" + `
Explain this behavior: [[ctx.md]]
Suggest a fix.
` + "```" + `

Assembled prompt:

` + "```" + `
Explain this behavior: The API returns 404 for missing users.
Suggest a fix.
` + "```" + `
`
